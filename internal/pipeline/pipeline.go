package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/On-Jun9/ShutterOrient/internal/config"
	"github.com/On-Jun9/ShutterOrient/internal/index"
	"github.com/On-Jun9/ShutterOrient/internal/locator"
	"github.com/On-Jun9/ShutterOrient/internal/log"
	"github.com/On-Jun9/ShutterOrient/internal/metadata"
	"github.com/On-Jun9/ShutterOrient/internal/orientation"
	"github.com/On-Jun9/ShutterOrient/internal/scanner"
	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

// Pipeline wires the resolver to its collaborators and runs it over many references.
type Pipeline struct {
	cfg              *config.Config
	scanner          *scanner.Scanner
	resolver         *orientation.Resolver
	locator          *locator.Locator
	index            index.Store
	logger           *log.Logger
	progressCallback ProgressCallback
}

func New(cfg *config.Config) (*Pipeline, error) {
	logger, err := log.New(cfg.LogFile, cfg.LogJSON)
	if err != nil {
		return nil, err
	}

	sc := scanner.New(cfg.IncludeExtensions)
	if err := sc.Exclude(cfg.ExcludePatterns...); err != nil {
		logger.Close()
		return nil, err
	}

	store, err := index.Open(cfg.IndexBackend, cfg.IndexFile)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to open orientation index: %w", err)
	}

	loc := locator.New(locator.Options{
		ContentRoot: cfg.ContentRoot,
		HTTPTimeout: cfg.HTTPTimeout,
		Index:       store,
		Logger:      logger,
	})

	resolver := orientation.New(metadata.NewEXIFReader(), loc)
	resolver.SetLogger(logger)

	return &Pipeline{
		cfg:      cfg,
		scanner:  sc,
		resolver: resolver,
		locator:  loc,
		index:    store,
		logger:   logger,
	}, nil
}

func (p *Pipeline) SetProgressCallback(cb ProgressCallback) {
	p.progressCallback = cb
}

func (p *Pipeline) Resolver() *orientation.Resolver {
	return p.resolver
}

func (p *Pipeline) Index() index.Store {
	return p.index
}

// Open returns the image bytes behind ref, whatever kind of reference it is.
func (p *Pipeline) Open(ctx context.Context, ref types.ImageRef) (io.ReadCloser, error) {
	return p.locator.OpenStream(ctx, ref)
}

func (p *Pipeline) Logger() *log.Logger {
	return p.logger
}

func (p *Pipeline) notify(update ProgressUpdate) {
	if p.progressCallback != nil {
		p.progressCallback(update)
	}
}

// Resolve resolves a single reference and logs the outcome.
func (p *Pipeline) Resolve(ctx context.Context, ref types.ImageRef) (types.Resolution, error) {
	start := time.Now()
	res, err := p.resolver.ResolveDetailed(ctx, ref)
	p.logger.LogResolution(res, time.Since(start))
	return res, err
}

// Run scans root and resolves every image found under it, sorted by path.
func (p *Pipeline) Run(ctx context.Context, root string) ([]types.Resolution, *types.RunSummary, error) {
	runID := uuid.NewString()
	p.logger.Info("Starting scan " + runID + ": '" + root + "'")
	p.notify(ProgressUpdate{Type: "status", RunID: runID, Message: "Scanning files..."})

	entries, err := p.scanner.Scan(root)
	if err != nil {
		p.logger.Error("Scan failed", err)
		p.notify(ProgressUpdate{Type: "error", RunID: runID, Error: err.Error()})
		return nil, nil, err
	}

	p.logger.Info("Found " + strconv.Itoa(len(entries)) + " files")

	refs := make([]types.ImageRef, len(entries))
	for i, e := range entries {
		refs[i] = types.ImageRef(e.Path)
	}

	results, summary := p.resolveAll(ctx, runID, refs)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Ref < results[j].Ref
	})
	return results, summary, ctx.Err()
}

// ResolveAll resolves refs with cfg.Jobs workers. Results keep the order of refs;
// locator failures are recorded in Resolution.Error rather than aborting the batch.
func (p *Pipeline) ResolveAll(ctx context.Context, refs []types.ImageRef) ([]types.Resolution, *types.RunSummary) {
	return p.resolveAll(ctx, uuid.NewString(), refs)
}

func (p *Pipeline) resolveAll(ctx context.Context, runID string, refs []types.ImageRef) ([]types.Resolution, *types.RunSummary) {
	summary := &types.RunSummary{RunID: runID, StartTime: time.Now()}
	results := make([]types.Resolution, len(refs))

	jobs := p.cfg.Jobs
	if jobs < 1 {
		jobs = 1
	}

	p.notify(ProgressUpdate{Type: "status", RunID: runID, Message: "Resolving orientation...", Total: len(refs)})

	done := make(chan int, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	go func() {
		for i, ref := range refs {
			i, ref := i, ref
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					results[i] = types.Resolution{Ref: ref, Angle: types.AngleUndefined, Source: types.SourceNone, Error: err.Error()}
				} else {
					// The error is already folded into Resolution.Error.
					results[i], _ = p.Resolve(gctx, ref)
				}
				done <- i
				return nil
			})
		}
		g.Wait()
		close(done)
	}()

	processed := 0
	for i := range done {
		processed++
		res := results[i]
		summary.Add(res)

		name := filepath.Base(string(res.Ref))
		p.logger.Progress(processed, len(refs), name)
		p.notify(ProgressUpdate{
			Type:       "progress",
			RunID:      runID,
			Current:    processed,
			Total:      len(refs),
			Filename:   name,
			Resolution: &res,
		})
	}

	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)

	p.logger.Summary(*summary)
	p.notify(ProgressUpdate{Type: "complete", RunID: runID, Summary: summary})

	return results, summary
}

func (p *Pipeline) Close() error {
	indexErr := p.index.Close()
	if err := p.logger.Close(); err != nil {
		return err
	}
	return indexErr
}
