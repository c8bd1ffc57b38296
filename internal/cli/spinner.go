package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerTickInterval = 100 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\x1b[K"

type spinner struct {
	w     io.Writer
	label string
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// startSpinner draws label behind a rotating frame on w until the returned
// func is called. The returned func may be called any number of times.
func startSpinner(enabled bool, w io.Writer, label string) func() {
	if !enabled || w == nil {
		return func() {}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Loading"
	}

	s := &spinner{w: w, label: label, done: make(chan struct{})}
	s.wg.Go(s.run)
	return s.stop
}

func (s *spinner) run() {
	ticker := time.NewTicker(spinnerTickInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		fmt.Fprintf(s.w, "%s%s %s", clearLine, spinnerFrames[frame%len(spinnerFrames)], s.label)
		select {
		case <-s.done:
			fmt.Fprint(s.w, clearLine)
			return
		case <-ticker.C:
		}
	}
}

func (s *spinner) stop() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}
