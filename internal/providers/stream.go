package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/ollama/ollama/api"
)

const readSize = 32 << 10

// Stream is an open generation response. It is consumed once through All
// and must be closed.
type Stream struct {
	body     io.ReadCloser
	session  *Session
	pending  []byte
	consumed bool
}

type generateLine struct {
	api.GenerateResponse
	Error string `json:"error,omitempty"`
}

func newStream(body io.ReadCloser, sess *Session) *Stream {
	return &Stream{body: body, session: sess}
}

// All yields one Batch per network read that completed at least one line.
// Lines that fail to decode or carry a server error are yielded as
// *StreamError items and iteration goes on. A failed read ends iteration
// after yielding its error.
func (s *Stream) All() iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		if s.consumed {
			return
		}
		s.consumed = true

		buf := make([]byte, readSize)
		for {
			n, err := s.body.Read(buf)
			if n > 0 {
				s.pending = append(s.pending, buf[:n]...)
				if !s.emit(s.completeLines(), yield) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				rest := bytes.TrimSpace(s.pending)
				s.pending = nil
				if len(rest) > 0 {
					s.emit([][]byte{rest}, yield)
				}
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read stream: %w", err))
				return
			}
		}
	}
}

// Close releases the underlying response body.
func (s *Stream) Close() error {
	return s.body.Close()
}

func (s *Stream) completeLines() [][]byte {
	idx := bytes.LastIndexByte(s.pending, '\n')
	if idx < 0 {
		return nil
	}
	chunk := s.pending[:idx]
	s.pending = append([]byte(nil), s.pending[idx+1:]...)
	return bytes.Split(chunk, []byte{'\n'})
}

func (s *Stream) emit(lines [][]byte, yield func(Batch, error) bool) bool {
	var batch Batch
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		frag, err := s.decode(line)
		if err != nil {
			if len(batch) > 0 {
				if !yield(batch, nil) {
					return false
				}
				batch = nil
			}
			if !yield(nil, err) {
				return false
			}
			continue
		}
		batch = append(batch, frag)
	}
	if len(batch) > 0 {
		return yield(batch, nil)
	}
	return true
}

func (s *Stream) decode(line []byte) (Fragment, error) {
	var msg generateLine
	if err := json.Unmarshal(line, &msg); err != nil {
		return Fragment{}, &StreamError{Message: fmt.Sprintf("decode response: %v", err)}
	}
	if msg.Error != "" {
		return Fragment{}, &StreamError{Message: msg.Error}
	}
	if s.session != nil && len(msg.Context) > 0 {
		s.session.Context = msg.Context
	}
	return Fragment{Text: msg.Response, Context: msg.Context, Done: msg.Done}, nil
}
