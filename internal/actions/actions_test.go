package actions

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func disableColors(t *testing.T) {
	t.Helper()

	old := color.NoColor
	color.NoColor = true

	t.Cleanup(func() {
		color.NoColor = old
	})
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

const listSuite = `
compilers:
  - api_name: cg141
    display_name: GCC 14.1
    nickname: gcc
  - api_name: ctcc
    display_name: TinyCC
    nickname: tcc
    local_compile: true
    local_compiler: tcc

tests:
  - group: impl
    file_name: test.c
    detect_macro: IMPL_TYPE
    variants:
      - variant: auto
        auto: true
      - variant: native
        detect_value: 1
`

func TestList(t *testing.T) {
	disableColors(t)

	dir := t.TempDir()
	writeFile(t, dir, "test.c", "int main(void) { return 0; }\n")
	suitePath := writeFile(t, dir, "suite.yaml", listSuite)

	var buf bytes.Buffer
	require.NoError(t, List(newTestLogger(), &buf, suitePath))

	out := buf.String()
	assert.Contains(t, out, "Compilers (2)")
	assert.Contains(t, out, "Tests (2)")
	assert.Contains(t, out, "gcc")
	assert.Contains(t, out, "local_compile")
	assert.Contains(t, out, "remote")
	assert.Contains(t, out, "impl_native")
	assert.Contains(t, out, "IMPL_TYPE")
}

func TestList_LoadError(t *testing.T) {
	var buf bytes.Buffer

	err := List(newTestLogger(), &buf, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading suite")
}

func TestValidate(t *testing.T) {
	disableColors(t)

	dir := t.TempDir()
	writeFile(t, dir, "test.c", "int main(void) { return 0; }\n")
	suitePath := writeFile(t, dir, "suite.yaml", listSuite)

	var buf bytes.Buffer
	require.NoError(t, Validate(context.Background(), newTestLogger(), &buf, suitePath))

	assert.Contains(t, buf.String(), "is valid: 2 compilers, 2 tests")
}

func TestValidate_MissingSource(t *testing.T) {
	disableColors(t)

	dir := t.TempDir()
	suitePath := writeFile(t, dir, "suite.yaml", listSuite)

	var buf bytes.Buffer

	err := Validate(context.Background(), newTestLogger(), &buf, suitePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checking referenced files")
}

func TestShowConfig(t *testing.T) {
	t.Setenv("GODBOLT_URL", "http://godbolt.test/api/compiler")

	var buf bytes.Buffer
	require.NoError(t, ShowConfig(&buf))

	out := buf.String()
	assert.Contains(t, out, "Godbolt API URL")
	assert.Contains(t, out, "http://godbolt.test/api/compiler")
}
