package render

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/sasanktumpati/tell/internal/providers"
)

// Sink writes streamed fragments to a terminal as they arrive.
type Sink struct {
	out    *bufio.Writer
	errOut io.Writer
	inline *Inline
	log    *slog.Logger

	wrote    bool
	endsInNL bool
}

// NewSink returns a Sink writing styled text to stdout and batch errors to stderr.
func NewSink(stdout, stderr io.Writer, styles Styles, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Sink{
		out:    bufio.NewWriter(stdout),
		errOut: stderr,
		inline: NewInline(styles),
		log:    log,
	}
}

// Fragment writes one fragment and flushes it.
func (s *Sink) Fragment(f providers.Fragment) error {
	if len(f.Context) > 0 {
		// Continuation state is not kept between invocations.
		s.log.Debug("continuation context received", "tokens", len(f.Context), "done", f.Done)
	}
	if f.Text != "" {
		s.wrote = true
		s.endsInNL = strings.HasSuffix(f.Text, "\n")
	}
	return s.write(s.inline.Render(f.Text))
}

// Consume writes every batch of seq. Batch errors are reported on stderr and
// do not stop consumption; a failed write to stdout does.
func (s *Sink) Consume(seq iter.Seq2[providers.Batch, error]) error {
	for batch, err := range seq {
		if err != nil {
			s.log.Debug("batch failed", "err", err)
			fmt.Fprintf(s.errOut, "Error during generation: %v\n", err)
			continue
		}
		for _, f := range batch {
			if err := s.Fragment(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close writes any held markers and ends the last line.
func (s *Sink) Close() error {
	tail := s.inline.Finish()
	if s.wrote && !s.endsInNL {
		tail += "\n"
	}
	return s.write(tail)
}

func (s *Sink) write(text string) error {
	if text != "" {
		if _, err := s.out.WriteString(text); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
