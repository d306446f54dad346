package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

// Logger writes structured records to a log file and human-readable
// summaries/progress to the console.
type Logger struct {
	console     io.Writer
	interactive bool
	file        *os.File
	entry       *logrus.Logger
}

func New(logFilePath string, logJSON bool) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	l := NewWithWriter(file, logJSON)
	l.file = file
	return l, nil
}

// NewWithWriter logs to w instead of a file. Console output still goes to stdout.
func NewWithWriter(w io.Writer, logJSON bool) *Logger {
	lr := logrus.New()
	lr.SetOutput(w)
	lr.SetLevel(logrus.InfoLevel)
	if logJSON {
		lr.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		lr.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
			DisableColors:   true,
			DisableQuote:    true,
		})
	}

	fd := os.Stdout.Fd()
	return &Logger{
		console:     os.Stdout,
		interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		entry:       lr,
	}
}

// SetConsole redirects Summary and Progress output. Progress is redrawn in
// place only when w is a terminal.
func (l *Logger) SetConsole(w io.Writer) {
	l.console = w
	l.interactive = false
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		l.interactive = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
}

func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) LogResolution(res types.Resolution, duration time.Duration) {
	fields := logrus.Fields{
		"ref":      string(res.Ref),
		"angle":    res.Angle.String(),
		"source":   string(res.Source),
		"duration": duration.String(),
	}
	if res.Raw != 0 {
		fields["raw"] = int(res.Raw)
	}

	if res.Error != "" {
		fields["error"] = res.Error
		l.entry.WithFields(fields).Error("resolve failed")
		return
	}
	l.entry.WithFields(fields).Info("resolved")
}

func (l *Logger) Info(msg string) {
	l.entry.Info(msg)
}

// Infof satisfies the resolver and locator logging hooks.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Error(msg string, err error) {
	l.entry.WithError(err).Error(msg)
}

func (l *Logger) Summary(summary types.RunSummary) {
	fmt.Fprintln(l.console, "\n=== ShutterOrient Summary ===")
	if summary.RunID != "" {
		fmt.Fprintf(l.console, "Run:            %s\n", summary.RunID)
	}
	fmt.Fprintf(l.console, "Total files:    %d\n", summary.TotalFiles)
	fmt.Fprintf(l.console, "0°:             %d\n", summary.Rotate0)
	fmt.Fprintf(l.console, "90°:            %d\n", summary.Rotate90)
	fmt.Fprintf(l.console, "180°:           %d\n", summary.Rotate180)
	fmt.Fprintf(l.console, "270°:           %d\n", summary.Rotate270)
	fmt.Fprintf(l.console, "Undefined:      %d\n", summary.Undefined)
	fmt.Fprintf(l.console, "From fallback:  %d\n", summary.FromFallback)
	fmt.Fprintf(l.console, "Failed:         %d\n", summary.Failed)
	fmt.Fprintf(l.console, "Duration:       %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Fprintln(l.console, "=============================")
}

// Progress redraws a single line on a terminal and prints one line per file otherwise.
func (l *Logger) Progress(current, total int, filename string) {
	if l.interactive {
		fmt.Fprintf(l.console, "\r[%d/%d] %s", current, total, filename)
		return
	}
	fmt.Fprintf(l.console, "[%d/%d] %s\n", current, total, filename)
}
