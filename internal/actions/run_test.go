package actions

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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cematrix/cematrix/internal/godbolt"
)

const runSuite = `
compilers:
  - api_name: cg141
    display_name: GCC 14.1
    nickname: gcc

tests:
  - group: impl
    file_name: test.c
    detect_macro: IMPL_TYPE
    variants:
      - variant: auto
        auto: true
      - variant: native
        detect_value: 1
      - variant: fallback
        detect_value: 2
`

// fakeGodbolt serves scripted replies in request order and records every
// decoded request body.
type fakeGodbolt struct {
	mu       sync.Mutex
	requests []godbolt.Request
	replies  []string
}

func (f *fakeGodbolt) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var req godbolt.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.requests = append(f.requests, req)

		idx := len(f.requests) - 1
		if idx >= len(f.replies) {
			http.Error(w, "no scripted reply left", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.replies[idx]))
	}
}

func ppReply(t *testing.T, output string) string {
	t.Helper()

	code := 0
	resp := godbolt.Response{
		Code:     &code,
		PpOutput: &godbolt.PreprocessorOutput{Output: output},
	}

	b, err := json.Marshal(&resp)
	require.NoError(t, err)

	return string(b)
}

func execReply(t *testing.T, exitCode int) string {
	t.Helper()

	buildCode := 0
	resp := godbolt.Response{
		Code:        &exitCode,
		DidExecute:  true,
		Stdout:      []godbolt.TextLine{{Text: "ok"}},
		BuildResult: &godbolt.BuildResult{Code: &buildCode},
	}

	b, err := json.Marshal(&resp)
	require.NoError(t, err)

	return string(b)
}

func runOptions(suitePath, resultsDir, serverURL string) RunOptions {
	return RunOptions{
		SuiteFile:    suitePath,
		ResultsDir:   resultsDir,
		Language:     "c",
		GodboltURL:   serverURL,
		APITimeout:   5 * time.Second,
		BuildTimeout: 5 * time.Second,
		RunTimeout:   5 * time.Second,
	}
}

const probedOutput = "int __GODBOLT_MACRO_PROBE_IMPL_TYPE__ = (int)(1);\nint main(void) { return 0; }"

func TestRun_EndToEndWithTable(t *testing.T) {
	disableColors(t)

	dir := t.TempDir()
	writeFile(t, dir, "test.c", "int main(void) { return 0; }\n")
	suitePath := writeFile(t, dir, "suite.yaml", runSuite)

	// Auto detects impl 1, so native is reused and only fallback re-runs.
	fake := &fakeGodbolt{replies: []string{
		ppReply(t, probedOutput),
		execReply(t, 0),
		ppReply(t, probedOutput),
		execReply(t, 0),
	}}

	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	resultsDir := filepath.Join(dir, "results")

	var buf bytes.Buffer

	opts := runOptions(suitePath, resultsDir, server.URL)
	opts.Table = true

	outcome, err := Run(context.Background(), newTestLogger(), &buf, opts)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Effective)
	assert.Equal(t, 2, outcome.Passed)
	assert.True(t, outcome.AllPassed())
	require.Len(t, outcome.Results, 3)

	require.Len(t, fake.requests, 4)
	assert.NotNil(t, fake.requests[0].Options.CompilerOptions.ProducePp)
	assert.True(t, fake.requests[1].Options.CompilerOptions.ExecutorRequest)

	out := buf.String()
	assert.Contains(t, out, "(reused)")
	assert.Contains(t, out, "Results: 2/2 passed")
	assert.Contains(t, out, "Table written to: "+filepath.Join(resultsDir, "table.md"))

	table, err := os.ReadFile(filepath.Join(resultsDir, "table.md"))
	require.NoError(t, err)
	assert.Contains(t, string(table), "| CC")
	assert.Contains(t, string(table), "⭐✅")

	summaryData, err := os.ReadFile(filepath.Join(resultsDir, "summary.json"))
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(summaryData, &entries))
	require.Len(t, entries, 3)

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		name, ok := e["test_name"].(string)
		require.True(t, ok)
		names[name] = true
	}

	assert.True(t, names["impl_auto"])
	assert.True(t, names["impl_native"])
	assert.True(t, names["impl_fallback"])
}

func TestRun_DefaultRunsAutoOnly(t *testing.T) {
	disableColors(t)

	dir := t.TempDir()
	writeFile(t, dir, "test.c", "int main(void) { return 0; }\n")
	suitePath := writeFile(t, dir, "suite.yaml", runSuite)

	fake := &fakeGodbolt{replies: []string{
		ppReply(t, probedOutput),
		execReply(t, 0),
	}}

	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	resultsDir := filepath.Join(dir, "results")

	var buf bytes.Buffer

	outcome, err := Run(context.Background(), newTestLogger(), &buf, runOptions(suitePath, resultsDir, server.URL))
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Effective)
	assert.Equal(t, 1, outcome.Passed)
	assert.Len(t, fake.requests, 2)

	_, statErr := os.Stat(filepath.Join(resultsDir, "table.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_TestFilterSkipsAutoDefault(t *testing.T) {
	disableColors(t)

	dir := t.TempDir()
	writeFile(t, dir, "test.c", "int main(void) { return 0; }\n")
	suitePath := writeFile(t, dir, "suite.yaml", runSuite)

	fake := &fakeGodbolt{replies: []string{
		ppReply(t, probedOutput),
		execReply(t, 0),
	}}

	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	var buf bytes.Buffer

	opts := runOptions(suitePath, filepath.Join(dir, "results"), server.URL)
	opts.TestFilter = []string{"impl_native"}

	outcome, err := Run(context.Background(), newTestLogger(), &buf, opts)
	require.NoError(t, err)

	// An explicit test filter runs the named variant directly.
	assert.Equal(t, 1, outcome.Effective)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "impl_native", outcome.Results[0].TestName)
	assert.False(t, outcome.Results[0].IsAuto)
}

func TestRun_FilterErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test.c", "int main(void) { return 0; }\n")
	suitePath := writeFile(t, dir, "suite.yaml", runSuite)

	tests := []struct {
		name     string
		mutate   func(*RunOptions)
		expected error
	}{
		{
			name:     "unknown compiler",
			mutate:   func(o *RunOptions) { o.CompilerFilter = []string{"nope"} },
			expected: ErrNoCompilers,
		},
		{
			name:     "unknown test",
			mutate:   func(o *RunOptions) { o.TestFilter = []string{"nope"} },
			expected: ErrNoTests,
		},
		{
			name:     "unknown group",
			mutate:   func(o *RunOptions) { o.GroupFilter = []string{"nope"} },
			expected: ErrNoTests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			opts := runOptions(suitePath, filepath.Join(t.TempDir(), "results"), "http://unused.test")
			tt.mutate(&opts)

			_, err := Run(context.Background(), newTestLogger(), &buf, opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestRun_LoadError(t *testing.T) {
	var buf bytes.Buffer

	opts := runOptions(filepath.Join(t.TempDir(), "missing.yaml"), t.TempDir(), "http://unused.test")

	_, err := Run(context.Background(), newTestLogger(), &buf, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading suite")
}
