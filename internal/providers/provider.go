// Package providers talks to the local Ollama inference server.
package providers

import (
	"fmt"
	"net/http"
)

// DefaultBaseURL is where a stock Ollama install listens.
const DefaultBaseURL = "http://127.0.0.1:11434"

// Endpoint locates the inference server.
type Endpoint struct {
	BaseURL    string
	HTTPClient *http.Client
}

// DefaultEndpoint returns the endpoint of a locally running Ollama server.
func DefaultEndpoint() Endpoint {
	return Endpoint{BaseURL: DefaultBaseURL}
}

// Model describes a model installed on the server.
type Model struct {
	Name string
	Size int64
}

// Session carries continuation state between generations. A nil *Session
// means every generation starts fresh.
type Session struct {
	Context []int
}

// Fragment is one incremental piece of generated text.
type Fragment struct {
	Text    string
	Context []int
	Done    bool
}

// Batch groups the fragments decoded from a single network read.
type Batch []Fragment

// RequestError reports a failure to reach the server or a rejected request.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// StreamError is a non-fatal error reported for one batch of a stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string { return e.Message }
