package suite

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// ResolvePaths makes every relative file reference absolute against
// baseDir. Logical names of auxiliary files are left untouched so directory
// structure is preserved when files are submitted remotely.
func (s *Suite) ResolvePaths(baseDir string) {
	for i := range s.Tests {
		t := &s.Tests[i]

		if t.FileName != "" && !filepath.IsAbs(t.FileName) {
			t.FileName = filepath.Join(baseDir, t.FileName)
		}

		for j := range t.AdditionalFiles {
			if !filepath.IsAbs(t.AdditionalFiles[j].Path) {
				t.AdditionalFiles[j].Path = filepath.Join(baseDir, t.AdditionalFiles[j].Path)
			}
		}

		for j := range t.IncludeDirs {
			if !filepath.IsAbs(t.IncludeDirs[j]) {
				t.IncludeDirs[j] = filepath.Join(baseDir, t.IncludeDirs[j])
			}
		}
	}
}

// resolveAuxPath locates an auxiliary file on disk: the explicit path
// first, then each include dir joined with the full logical name, then
// joined with its basename.
func resolveAuxPath(aux AuxFile, includeDirs []string) (string, bool) {
	if isFile(aux.Path) {
		return aux.Path, true
	}

	base := filepath.Base(aux.Name)
	for _, dir := range includeDirs {
		full := filepath.Join(dir, aux.Name)
		if isFile(full) {
			return full, true
		}

		candidate := filepath.Join(dir, base)
		if isFile(candidate) {
			return candidate, true
		}
	}

	return "", false
}

// LoadFiles reads a variant's auxiliary files into memory: explicit entries
// first under their logical names, then every file directly inside each
// include dir under its basename. The first occurrence of a logical name
// wins. Unreadable files are logged and skipped.
func LoadFiles(log logrus.FieldLogger, test *Variant) []LoadedFile {
	var result []LoadedFile

	seen := make(map[string]struct{})

	for _, aux := range test.AdditionalFiles {
		if _, ok := seen[aux.Name]; ok {
			continue
		}

		path, ok := resolveAuxPath(aux, test.IncludeDirs)
		if !ok {
			log.WithFields(logrus.Fields{
				"file": aux.Path,
				"name": aux.Name,
			}).Warn("auxiliary file not found, also searched include dirs")

			continue
		}

		contents, err := os.ReadFile(path) //nolint:gosec // G304: paths come from the suite definition
		if err != nil {
			log.WithError(err).WithField("file", path).Warn("could not read auxiliary file")

			continue
		}

		result = append(result, LoadedFile{Name: aux.Name, Contents: string(contents)})
		seen[aux.Name] = struct{}{}
	}

	for _, dir := range test.IncludeDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.WithError(err).WithField("dir", dir).Warn("could not list include dir")

			continue
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if !isFile(path) {
				continue
			}

			if _, ok := seen[entry.Name()]; ok {
				continue
			}

			contents, err := os.ReadFile(path) //nolint:gosec // G304: paths come from the suite definition
			if err != nil {
				log.WithError(err).WithField("file", path).Warn("could not read auxiliary file")

				continue
			}

			result = append(result, LoadedFile{Name: entry.Name(), Contents: string(contents)})
			seen[entry.Name()] = struct{}{}
		}
	}

	return result
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
