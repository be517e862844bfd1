package suite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreflight(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.c":      "int main(void) { return 0; }",
		"shared.h":    "",
		"inc/found.h": "",
	})

	s := &Suite{
		Tests: []Variant{
			{
				TestName: "ok",
				FileName: filepath.Join(dir, "main.c"),
				AdditionalFiles: []AuxFile{
					{Name: "shared.h", Path: filepath.Join(dir, "shared.h")},
					{Name: "found.h", Path: filepath.Join(dir, "missing/found.h")},
				},
				IncludeDirs: []string{filepath.Join(dir, "inc")},
			},
		},
	}

	assert.NoError(t, s.Preflight(context.Background()))
}

func TestPreflight_Errors(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.c": "int main(void) { return 0; }",
	})

	tests := []struct {
		name    string
		variant Variant
		errText string
	}{
		{
			name:    "no source configured",
			variant: Variant{TestName: "bare"},
			errText: "no source file configured",
		},
		{
			name: "missing source",
			variant: Variant{
				TestName: "gone",
				FileName: filepath.Join(dir, "gone.c"),
			},
			errText: "source file",
		},
		{
			name: "missing auxiliary file",
			variant: Variant{
				TestName: "aux",
				FileName: filepath.Join(dir, "main.c"),
				AdditionalFiles: []AuxFile{
					{Name: "ghost.h", Path: filepath.Join(dir, "ghost.h")},
				},
			},
			errText: "auxiliary file ghost.h not found",
		},
		{
			name: "missing include dir",
			variant: Variant{
				TestName:    "dirs",
				FileName:    filepath.Join(dir, "main.c"),
				IncludeDirs: []string{filepath.Join(dir, "no-such-dir")},
			},
			errText: "include dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Suite{Tests: []Variant{tt.variant}}

			err := s.Preflight(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
			assert.Contains(t, err.Error(), tt.variant.TestName)
		})
	}
}

func TestPreflight_SharedSourceCheckedOnce(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.c": "int main(void) { return 0; }",
	})

	s := &Suite{
		Tests: []Variant{
			{TestName: "a", FileName: filepath.Join(dir, "main.c")},
			{TestName: "b", FileName: filepath.Join(dir, "main.c")},
		},
	}

	require.NoError(t, s.Preflight(context.Background()))
}
