package matrix

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Artifact keys, also used in Result.Files and result.json.
const (
	artifactPreprocessed  = "preprocessed"
	artifactPreprocessErr = "preprocess_err"
	artifactCompileErr    = "compile_err"
	artifactRunStdout     = "run_stdout"
	artifactRunStderr     = "run_stderr"
	artifactResult        = "result"
	artifactDebug         = "debug_response"
	artifactAssembly      = "assembly"
)

var compilerDirNamer = strings.NewReplacer(" ", "_", "/", "_")

// PrepareResultsDir wipes and recreates the artifact root so a run never
// mixes its output with a previous one.
func PrepareResultsDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing results dir: %w", err)
	}

	//nolint:gosec // G301: results are meant to be user-browsable
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating results dir: %w", err)
	}

	return nil
}

// artifactSet manages the on-disk artifacts of one test/compiler pairing.
// Writes are best effort: a failed artifact write is logged and never fails
// the job itself.
type artifactSet struct {
	log   logrus.FieldLogger
	dir   string
	files map[string]string
}

func newArtifactSet(log logrus.FieldLogger, resultsDir, testName, compilerDisplay string, preprocessOnly, debug bool) (*artifactSet, error) {
	dir := filepath.Join(resultsDir, fmt.Sprintf("%s_%s", testName, compilerDirNamer.Replace(compilerDisplay)))

	//nolint:gosec // G301: results are meant to be user-browsable
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}

	a := &artifactSet{
		log:   log,
		dir:   dir,
		files: make(map[string]string),
	}

	a.register(artifactPreprocessed, "preprocessed.c")
	a.register(artifactPreprocessErr, "preprocess_err.txt")

	if !preprocessOnly {
		a.register(artifactCompileErr, "compile_err.txt")
		a.register(artifactRunStdout, "run_stdout.txt")
		a.register(artifactRunStderr, "run_stderr.txt")
	}

	a.register(artifactResult, "result.json")

	if debug {
		a.register(artifactDebug, "debug_response.json")
	}

	return a, nil
}

func (a *artifactSet) register(key, filename string) {
	a.files[key] = filepath.Join(a.dir, filename)
}

func (a *artifactSet) writeText(key, contents string) {
	//nolint:gosec // G306: results are meant to be user-readable
	if err := os.WriteFile(a.files[key], []byte(contents), 0o644); err != nil {
		a.log.WithError(err).WithField("artifact", key).Warn("failed to write artifact")
	}
}

func (a *artifactSet) writeJSON(key string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		a.log.WithError(err).WithField("artifact", key).Warn("failed to encode artifact")

		return
	}

	//nolint:gosec // G306: results are meant to be user-readable
	if err := os.WriteFile(a.files[key], data, 0o644); err != nil {
		a.log.WithError(err).WithField("artifact", key).Warn("failed to write artifact")
	}
}
