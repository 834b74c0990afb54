// Package render writes a Report to its output sinks.
package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Format is an output format name.
type Format string

const (
	JSON     Format = "json"
	Markdown Format = "markdown"
	Text     Format = "text"
	HTML     Format = "html"
	XLSX     Format = "xlsx"
	Parquet  Format = "parquet"
)

// Formats lists every supported format in the order sinks are written.
var Formats = []Format{JSON, Markdown, Text, HTML, XLSX, Parquet}

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "markdown", "md":
		return Markdown, nil
	case "text", "txt", "table":
		return Text, nil
	case "html":
		return HTML, nil
	case "xlsx", "excel":
		return XLSX, nil
	case "parquet":
		return Parquet, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Extension is the file extension for the format.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return "md"
	case Text:
		return "txt"
	default:
		return string(f)
	}
}

// Binary reports whether the format cannot be written to a terminal.
func (f Format) Binary() bool {
	return f == XLSX || f == Parquet
}

// FileName returns dir/team-pulse-YYYYMMDD-HHMMSS.<ext> for the run time at.
func FileName(dir string, f Format, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("team-pulse-%s.%s", at.Format("20060102-150405"), f.Extension()))
}

// writeFunc renders a report in one format.
type writeFunc func(w io.Writer, r *domain.Report, opts Options) error

var writers = map[Format]writeFunc{
	JSON:     writeJSON,
	Markdown: writeMarkdown,
	Text:     writeText,
	HTML:     writeHTML,
	XLSX:     writeXLSX,
	Parquet:  writeParquet,
}

// Options controls where and how sinks are written.
type Options struct {
	// Stdout writes textual formats to Out and suppresses every file write.
	Stdout bool
	Out    io.Writer
	Dir    string
	// Color enables ANSI colors in the text format.
	Color bool
}

// Writer writes reports to the configured sinks.
type Writer struct {
	formats []Format
	opts    Options
	logger  logrus.FieldLogger
}

// NewWriter creates a Writer. Colors are enabled for stdout when it is a terminal.
func NewWriter(formats []Format, opts Options, logger logrus.FieldLogger) *Writer {
	if opts.Out == nil {
		opts.Out = os.Stdout
		opts.Color = opts.Color || (opts.Stdout && term.IsTerminal(int(os.Stdout.Fd())))
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	return &Writer{formats: formats, opts: opts, logger: logger}
}

// Write renders the report in every format and returns the files written.
func (w *Writer) Write(r *domain.Report) ([]string, error) {
	var written []string
	for _, f := range w.formats {
		write, ok := writers[f]
		if !ok {
			return written, fmt.Errorf("unknown output format %q", f)
		}
		if w.opts.Stdout {
			if f.Binary() {
				w.logger.WithField("format", f).Warn("binary format skipped in stdout mode")
				continue
			}
			if err := write(w.opts.Out, r, w.opts); err != nil {
				return written, fmt.Errorf("failed to write %s report: %w", f, err)
			}
			continue
		}

		path := FileName(w.opts.Dir, f, r.GeneratedAt)
		if err := writeFile(path, func(out io.Writer) error {
			fileOpts := w.opts
			fileOpts.Color = false
			return write(out, r, fileOpts)
		}); err != nil {
			return written, fmt.Errorf("failed to write %s report: %w", f, err)
		}
		w.logger.WithField("path", path).Info("report written")
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
