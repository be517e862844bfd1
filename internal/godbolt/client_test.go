package godbolt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func TestClient_Compile(t *testing.T) {
	var captured Request

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cg141/compile", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code": 0, "stdout": [{"text": "hello"}], "stderr": [], "didExecute": true, "execTime": "12"}`))
	}))
	defer server.Close()

	c := NewClient(newTestLogger(), server.URL, 5*time.Second)

	req := &Request{
		Source:   "int main(void) { return 0; }",
		Compiler: "cg141",
		Lang:     "c",
		Files:    []File{},
		Options: Options{
			UserArguments: "-O2 -Wall",
			Tools:         []interface{}{},
			Libraries:     []Library{},
		},
	}

	resp, err := c.Compile(context.Background(), "cg141", req)
	require.NoError(t, err)

	require.NotNil(t, resp.Code)
	assert.Equal(t, 0, *resp.Code)
	assert.True(t, resp.DidExecute)
	assert.Equal(t, FlexInt(12), resp.ExecTime)
	require.Len(t, resp.Stdout, 1)
	assert.Equal(t, "hello", resp.Stdout[0].Text)

	assert.Equal(t, "int main(void) { return 0; }", captured.Source)
	assert.Equal(t, "-O2 -Wall", captured.Options.UserArguments)
	assert.True(t, captured.AllowStoreCodeDebug)
	assert.False(t, captured.BypassCache)
}

func TestClient_Compile_TrailingSlash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/compiler/clang1500/compile", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(newTestLogger(), server.URL+"/api/compiler/", 5*time.Second)

	_, err := c.Compile(context.Background(), "clang1500", &Request{})
	require.NoError(t, err)
}

func TestClient_Compile_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(newTestLogger(), server.URL, 5*time.Second)

	_, err := c.Compile(context.Background(), "cg141", &Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Compile_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	c := NewClient(newTestLogger(), server.URL, 5*time.Second)

	_, err := c.Compile(context.Background(), "cg141", &Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestClient_Compile_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	c := NewClient(newTestLogger(), server.URL, time.Second)

	_, err := c.Compile(context.Background(), "cg141", &Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submitting request")
}

func TestFlexInt_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected FlexInt
		wantErr  bool
	}{
		{
			name:     "plain number",
			input:    `42`,
			expected: 42,
		},
		{
			name:     "quoted number",
			input:    `"137"`,
			expected: 137,
		},
		{
			name:     "float",
			input:    `12.7`,
			expected: 12,
		},
		{
			name:     "null",
			input:    `null`,
			expected: 0,
		},
		{
			name:     "empty string",
			input:    `""`,
			expected: 0,
		},
		{
			name:    "garbage",
			input:   `"fast"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v FlexInt

			err := json.Unmarshal([]byte(tt.input), &v)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}
