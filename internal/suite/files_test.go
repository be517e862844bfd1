package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for name, contents := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	return dir
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()

	s := &Suite{
		Tests: []Variant{
			{
				TestName: "rel",
				FileName: "src/main.c",
				AdditionalFiles: []AuxFile{
					{Name: "util/helper.h", Path: "util/helper.h"},
				},
				IncludeDirs: []string{"headers"},
			},
			{
				TestName: "abs",
				FileName: "/opt/fixed/main.c",
				AdditionalFiles: []AuxFile{
					{Name: "abs.h", Path: "/opt/fixed/abs.h"},
				},
				IncludeDirs: []string{"/opt/fixed/include"},
			},
		},
	}

	s.ResolvePaths(base)

	rel := s.Tests[0]
	assert.Equal(t, filepath.Join(base, "src/main.c"), rel.FileName)
	assert.Equal(t, filepath.Join(base, "util/helper.h"), rel.AdditionalFiles[0].Path)
	assert.Equal(t, "util/helper.h", rel.AdditionalFiles[0].Name)
	assert.Equal(t, filepath.Join(base, "headers"), rel.IncludeDirs[0])

	abs := s.Tests[1]
	assert.Equal(t, "/opt/fixed/main.c", abs.FileName)
	assert.Equal(t, "/opt/fixed/abs.h", abs.AdditionalFiles[0].Path)
	assert.Equal(t, "/opt/fixed/include", abs.IncludeDirs[0])
}

func TestResolveAuxPath(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"direct.h":          "direct",
		"inc/sub/nested.h":  "nested",
		"inc/flat.h":        "flat",
		"other/basename.h":  "base",
		"other/ignored/x.h": "x",
	})

	tests := []struct {
		name     string
		aux      AuxFile
		dirs     []string
		wantPath string
		wantOK   bool
	}{
		{
			name:     "explicit path wins",
			aux:      AuxFile{Name: "direct.h", Path: filepath.Join(dir, "direct.h")},
			dirs:     []string{filepath.Join(dir, "inc")},
			wantPath: filepath.Join(dir, "direct.h"),
			wantOK:   true,
		},
		{
			name:     "full logical name under include dir",
			aux:      AuxFile{Name: "sub/nested.h", Path: "sub/nested.h"},
			dirs:     []string{filepath.Join(dir, "inc")},
			wantPath: filepath.Join(dir, "inc/sub/nested.h"),
			wantOK:   true,
		},
		{
			name:     "basename under later include dir",
			aux:      AuxFile{Name: "deep/path/basename.h", Path: "deep/path/basename.h"},
			dirs:     []string{filepath.Join(dir, "inc"), filepath.Join(dir, "other")},
			wantPath: filepath.Join(dir, "other/basename.h"),
			wantOK:   true,
		},
		{
			name:   "not found anywhere",
			aux:    AuxFile{Name: "ghost.h", Path: "ghost.h"},
			dirs:   []string{filepath.Join(dir, "inc")},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := resolveAuxPath(tt.aux, tt.dirs)
			assert.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				assert.Equal(t, tt.wantPath, path)
			}
		})
	}
}

func TestLoadFiles(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"shared.h":        "explicit contents",
		"inc/alpha.h":     "alpha",
		"inc/beta.h":      "beta",
		"inc/sub/gamma.h": "gamma",
	})

	test := &Variant{
		TestName: "t",
		AdditionalFiles: []AuxFile{
			{Name: "va_opt/shared.h", Path: filepath.Join(dir, "shared.h")},
		},
		IncludeDirs: []string{filepath.Join(dir, "inc")},
	}

	files := LoadFiles(newTestLogger(), test)
	require.Len(t, files, 3)

	byName := make(map[string]string, len(files))
	for _, f := range files {
		byName[f.Name] = f.Contents
	}

	// Explicit entries keep their logical name, including subdirectories.
	assert.Equal(t, "explicit contents", byName["va_opt/shared.h"])

	// Include dirs contribute direct files under their basenames;
	// subdirectories are not walked.
	assert.Equal(t, "alpha", byName["alpha.h"])
	assert.Equal(t, "beta", byName["beta.h"])
	assert.NotContains(t, byName, "gamma.h")
	assert.NotContains(t, byName, "sub/gamma.h")
}

func TestLoadFiles_FirstNameWins(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"explicit/conf.h": "from explicit",
		"inc/conf.h":      "from include dir",
	})

	test := &Variant{
		TestName: "t",
		AdditionalFiles: []AuxFile{
			{Name: "conf.h", Path: filepath.Join(dir, "explicit/conf.h")},
		},
		IncludeDirs: []string{filepath.Join(dir, "inc")},
	}

	files := LoadFiles(newTestLogger(), test)
	require.Len(t, files, 1)
	assert.Equal(t, "conf.h", files[0].Name)
	assert.Equal(t, "from explicit", files[0].Contents)
}

func TestLoadFiles_SearchesIncludeDirs(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"inc/found.h": "found via search",
	})

	// The explicit path does not exist; the basename search locates it.
	test := &Variant{
		TestName: "t",
		AdditionalFiles: []AuxFile{
			{Name: "found.h", Path: filepath.Join(dir, "missing/found.h")},
		},
		IncludeDirs: []string{filepath.Join(dir, "inc")},
	}

	files := LoadFiles(newTestLogger(), test)
	require.Len(t, files, 1)
	assert.Equal(t, "found via search", files[0].Contents)
}

func TestLoadFiles_SkipsMissing(t *testing.T) {
	test := &Variant{
		TestName: "t",
		AdditionalFiles: []AuxFile{
			{Name: "ghost.h", Path: filepath.Join(t.TempDir(), "ghost.h")},
		},
	}

	files := LoadFiles(newTestLogger(), test)
	assert.Empty(t, files)
}

func TestLoadFiles_MissingIncludeDir(t *testing.T) {
	test := &Variant{
		TestName:    "t",
		IncludeDirs: []string{filepath.Join(t.TempDir(), "nope")},
	}

	files := LoadFiles(newTestLogger(), test)
	assert.Empty(t, files)
}
