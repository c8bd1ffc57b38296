package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasanktumpati/tell/internal/config"
	"github.com/sasanktumpati/tell/internal/providers"
)

// fakeOllama records generate requests and answers them with fixed NDJSON lines.
type fakeOllama struct {
	*httptest.Server

	mu       sync.Mutex
	requests []api.GenerateRequest
	hits     int
}

func newFakeOllama(t *testing.T, lines ...string) *fakeOllama {
	t.Helper()
	f := &fakeOllama{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits++
		f.mu.Unlock()

		switch r.URL.Path {
		case "/api/generate":
			var req api.GenerateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.mu.Lock()
			f.requests = append(f.requests, req)
			f.mu.Unlock()

			w.Header().Set("Content-Type", "application/x-ndjson")
			flusher, _ := w.(http.Flusher)
			for _, line := range lines {
				_, _ = w.Write([]byte(line + "\n"))
				if flusher != nil {
					flusher.Flush()
				}
			}
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]any{
					{"name": "llama3.2:latest", "model": "llama3.2:latest", "size": 2019393189},
					{"name": "gemma2:2b", "model": "gemma2:2b", "size": 1629518495},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOllama) Hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

func (f *fakeOllama) Requests() []api.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.GenerateRequest(nil), f.requests...)
}

type harness struct {
	app     *App
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	cfgPath string
}

func newHarness(t *testing.T, backend *fakeOllama) *harness {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "tell", "tell.toml")
	t.Setenv("TELL_CONFIG", cfgPath)

	var stdout, stderr bytes.Buffer
	return &harness{
		app:     New(&stdout, &stderr, providers.Endpoint{BaseURL: backend.URL}),
		stdout:  &stdout,
		stderr:  &stderr,
		cfgPath: cfgPath,
	}
}

func (h *harness) run(args ...string) error {
	h.stdout.Reset()
	h.stderr.Reset()
	return h.app.Execute(context.Background(), args)
}

func TestNoArgumentsPrintsUsageWithoutIO(t *testing.T) {
	backend := newFakeOllama(t)
	h := newHarness(t, backend)

	require.NoError(t, h.run())

	assert.Contains(t, h.stdout.String(), "tell --switch <model>")
	assert.Contains(t, h.stdout.String(), h.cfgPath)
	assert.NoFileExists(t, h.cfgPath)
	assert.Zero(t, backend.Hits())
}

func TestSwitchPersistsLastModel(t *testing.T) {
	backend := newFakeOllama(t)
	h := newHarness(t, backend)

	require.NoError(t, h.run("--switch", "foo"))
	assert.Equal(t, "Switched to model: foo\n", h.stdout.String())

	require.NoError(t, h.run("--switch", "bar"))
	assert.Equal(t, "Switched to model: bar\n", h.stdout.String())

	cfg, err := config.Load(h.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "bar", cfg.Model)
	assert.Zero(t, backend.Hits())
}

func TestSwitchUsageErrors(t *testing.T) {
	cases := map[string][]string{
		"missing value":   {"--switch"},
		"extra arguments": {"--switch", "foo", "bar"},
		"blank value":     {"--switch", "  "},
		"flag as value":   {"--switch", "--debug"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			backend := newFakeOllama(t)
			h := newHarness(t, backend)

			err := h.run(args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUsage)
			assert.NoFileExists(t, h.cfgPath)
			assert.Zero(t, backend.Hits())
		})
	}
}

func TestPromptIsJoinedAndStreamed(t *testing.T) {
	backend := newFakeOllama(t,
		`{"response":"Hel","done":false}`,
		`{"response":"lo","done":false}`,
		`{"response":"","done":true,"context":[1,2]}`,
	)
	h := newHarness(t, backend)

	require.NoError(t, h.run("hello", "world"))

	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "hello world", reqs[0].Prompt)
	assert.Equal(t, config.DefaultModel, reqs[0].Model)
	assert.Empty(t, reqs[0].Context)

	assert.Equal(t, "Hello\n", h.stdout.String())
	assert.Empty(t, h.stderr.String())
	assert.FileExists(t, h.cfgPath)
}

func TestStreamErrorDoesNotAbortOutput(t *testing.T) {
	backend := newFakeOllama(t,
		`{"response":"one ","done":false}`,
		`{"error":"llama runner process has terminated"}`,
		`{"response":"three","done":true}`,
	)
	h := newHarness(t, backend)

	require.NoError(t, h.run("count"))

	assert.Equal(t, "one three\n", h.stdout.String())
	assert.Contains(t, h.stderr.String(), "Error during generation: llama runner process has terminated")
}

func TestModelFlagOverridesWithoutSaving(t *testing.T) {
	backend := newFakeOllama(t, `{"response":"ok","done":true}`)
	h := newHarness(t, backend)
	require.NoError(t, config.Save(h.cfgPath, &config.Config{Model: "gemma2:2b"}))

	require.NoError(t, h.run("-m", "llama3.2", "hi"))

	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "llama3.2", reqs[0].Model)

	cfg, err := config.Load(h.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "gemma2:2b", cfg.Model)
}

func TestFlagsOnlyParsedBeforePrompt(t *testing.T) {
	backend := newFakeOllama(t, `{"response":"ok","done":true}`)
	h := newHarness(t, backend)

	require.NoError(t, h.run("what", "does", "--switch", "do"))
	require.NoError(t, h.run("--", "-h", "in", "tar"))

	reqs := backend.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "what does --switch do", reqs[0].Prompt)
	assert.Equal(t, "-h in tar", reqs[1].Prompt)
}

func TestConfigFlagOverridesEnvironment(t *testing.T) {
	backend := newFakeOllama(t)
	h := newHarness(t, backend)
	other := filepath.Join(t.TempDir(), "other.toml")

	require.NoError(t, h.run("--config", other, "--switch", "phi3"))

	cfg, err := config.Load(other)
	require.NoError(t, err)
	assert.Equal(t, "phi3", cfg.Model)
	assert.NoFileExists(t, h.cfgPath)
}

func TestGenerateRequestErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"ghost\" not found, try pulling it first"}`))
	}))
	defer server.Close()

	t.Setenv("TELL_CONFIG", filepath.Join(t.TempDir(), "tell.toml"))
	var stdout, stderr bytes.Buffer
	app := New(&stdout, &stderr, providers.Endpoint{BaseURL: server.URL})

	err := app.Execute(context.Background(), []string{"-m", "ghost", "hi"})
	require.Error(t, err)

	var reqErr *providers.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, err.Error(), "not found")
	assert.Empty(t, stdout.String())
}

func TestMalformedConfigIsFatal(t *testing.T) {
	backend := newFakeOllama(t, `{"response":"ok","done":true}`)
	h := newHarness(t, backend)
	require.NoError(t, os.MkdirAll(filepath.Dir(h.cfgPath), 0o755))
	require.NoError(t, os.WriteFile(h.cfgPath, []byte("model = [\n"), 0o644))

	err := h.run("hi")
	var parseErr *config.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Zero(t, backend.Hits())
}

func TestModelsMarksActiveModel(t *testing.T) {
	backend := newFakeOllama(t)
	h := newHarness(t, backend)

	require.NoError(t, h.run("--models"))

	out := h.stdout.String()
	assert.Contains(t, out, "CURRENT")
	assert.Regexp(t, `\*\s+gemma2:2b\s+1\.6 GB`, out)
	assert.Regexp(t, `\n\s+llama3\.2:latest\s+2\.0 GB`, out)
}

func TestVersionFlag(t *testing.T) {
	backend := newFakeOllama(t)
	h := newHarness(t, backend)

	require.NoError(t, h.run("--version"))
	assert.Equal(t, "tell v"+version+"\n", h.stdout.String())
}

func TestDebugLogsToStderr(t *testing.T) {
	backend := newFakeOllama(t, `{"response":"ok","done":true,"context":[5]}`)
	h := newHarness(t, backend)

	require.NoError(t, h.run("--debug", "hi"))

	assert.Equal(t, "ok\n", h.stdout.String())
	assert.Contains(t, h.stderr.String(), "level=DEBUG")
	assert.Contains(t, h.stderr.String(), "continuation context received")
}
