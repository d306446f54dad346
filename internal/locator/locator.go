// Package locator classifies image references and opens them for reading.
//
// Supported references:
//
//	/photos/a.jpg, file:///photos/a.jpg   local file, read directly
//	http://host/a.jpg, https://...        remote, streamed with a GET
//	content://<authority>/<path>          remote handle served from a content root
package locator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/On-Jun9/ShutterOrient/internal/index"
	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

var (
	ErrEmptyRef          = errors.New("empty reference")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrNoContentRoot     = errors.New("content references are not configured")
)

type Logger interface {
	Infof(format string, args ...interface{})
}

type Options struct {
	// ContentRoot backs content:// references. Empty disables them.
	ContentRoot string
	HTTPTimeout time.Duration
	// Index supplies fallback orientation values. May be nil.
	Index  index.Store
	Logger Logger
}

type Locator struct {
	contentRoot string
	client      *http.Client
	index       index.Store
	logger      Logger
}

func New(opts Options) *Locator {
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Locator{
		contentRoot: opts.ContentRoot,
		client:      &http.Client{Timeout: timeout},
		index:       opts.Index,
		logger:      opts.Logger,
	}
}

func (l *Locator) Classify(ref types.ImageRef) (types.Location, error) {
	u, err := parse(ref)
	if err != nil {
		return types.Location{}, err
	}

	switch u.Scheme {
	case "", "file":
		path, err := localPath(u)
		if err != nil {
			return types.Location{}, err
		}
		return types.Location{Kind: types.RefKindLocalFile, Path: path}, nil
	case "http", "https":
		if u.Host == "" {
			return types.Location{}, fmt.Errorf("missing host in %q", string(ref))
		}
		return types.Location{Kind: types.RefKindRemoteHandle}, nil
	case "content":
		if l.contentRoot == "" {
			return types.Location{}, ErrNoContentRoot
		}
		if _, err := l.contentPath(u); err != nil {
			return types.Location{}, err
		}
		return types.Location{Kind: types.RefKindRemoteHandle}, nil
	default:
		return types.Location{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

// OpenStream opens any classifiable reference. Callers must close the stream.
func (l *Locator) OpenStream(ctx context.Context, ref types.ImageRef) (io.ReadCloser, error) {
	u, err := parse(ref)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "", "file":
		path, err := localPath(u)
		if err != nil {
			return nil, err
		}
		return openFile(path)
	case "http", "https":
		return l.get(ctx, u.String())
	case "content":
		if l.contentRoot == "" {
			return nil, ErrNoContentRoot
		}
		path, err := l.contentPath(u)
		if err != nil {
			return nil, err
		}
		return openFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

// FallbackOrientation looks the reference up in the index, then the bare path for file refs.
func (l *Locator) FallbackOrientation(ctx context.Context, ref types.ImageRef) (int, bool) {
	if l.index == nil {
		return 0, false
	}

	keys := []types.ImageRef{ref}
	if loc, err := l.Classify(ref); err == nil && loc.Kind == types.RefKindLocalFile && types.ImageRef(loc.Path) != ref {
		keys = append(keys, types.ImageRef(loc.Path))
	}

	for _, key := range keys {
		raw, ok, err := l.index.Lookup(key)
		if err != nil {
			l.infof("Unable to read fallback orientation for %s: %v", key, err)
			return 0, false
		}
		if ok {
			return raw, true
		}
	}
	return 0, false
}

func (l *Locator) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

// contentPath maps content://authority/p to <root>/authority/p without leaving root.
func (l *Locator) contentPath(u *url.URL) (string, error) {
	if u.Host == "" {
		return "", fmt.Errorf("missing authority in %q", u.String())
	}

	root := filepath.Clean(l.contentRoot)
	path := filepath.Join(root, u.Host, filepath.FromSlash(u.Path))
	if path == root || !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("content path escapes root: %q", u.String())
	}
	return path, nil
}

func (l *Locator) infof(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Infof(format, args...)
	}
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// parse treats anything without a "scheme://" prefix as a literal file path,
// so '#', '?' and '%' in file names keep their meaning.
func parse(ref types.ImageRef) (*url.URL, error) {
	s := string(ref)
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyRef
	}
	if filepath.IsAbs(s) || !hasScheme(s) {
		return &url.URL{Path: filepath.ToSlash(s)}, nil
	}

	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %q: %w", s, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u, nil
}

// hasScheme reports whether s starts with an RFC 3986 scheme followed by "://".
func hasScheme(s string) bool {
	s = strings.TrimSpace(s)
	i := strings.Index(s, "://")
	if i <= 0 {
		return false
	}
	for j, c := range s[:i] {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case j > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

func localPath(u *url.URL) (string, error) {
	if u.Scheme == "file" && u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("remote file host not supported: %s", u.Host)
	}
	if u.Path == "" {
		return "", ErrEmptyRef
	}
	return filepath.FromSlash(u.Path), nil
}
