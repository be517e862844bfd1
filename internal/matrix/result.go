// Package matrix runs every configured test variant against every configured
// compiler and records the outcome of each pairing.
package matrix

import (
	"encoding/json"

	"github.com/cematrix/cematrix/internal/suite"
)

// Stages a job can end in. A job stops at the first failing stage; "success"
// means the program compiled, ran and exited zero.
const (
	StagePreprocessing = "preprocessing"
	StageCompilation   = "compilation"
	StageRuntime       = "runtime"
	StageSuccess       = "success"
)

// Result is the write-once record of one test/compiler pairing. Reused
// results are structural copies produced by ReuseFor; nothing mutates a
// Result after its job finishes.
type Result struct {
	TestName       string
	Group          string
	Variant        string
	VariantDisplay string
	IsAuto         bool
	DetectValue    *int

	CompilerNickname string
	CompilerDisplay  string
	CompilerAPI      string

	Stage       string
	Passed      bool
	HasWarnings bool
	HasErrors   bool
	APIError    bool

	// ImplValue is the macro probe value extracted during preprocessing,
	// absent when no probe was configured or extraction found nothing.
	ImplValue *int

	// Files maps artifact keys to the paths they were written to.
	Files map[string]string

	// Stderr holds the captured error text per stage.
	Stderr map[string]string
}

type resultJSON struct {
	TestName       string            `json:"test_name"`
	Group          string            `json:"group"`
	Variant        string            `json:"variant"`
	VariantDisplay string            `json:"variant_display"`
	IsAuto         bool              `json:"is_auto"`
	DetectValue    *int              `json:"detect_value"`
	Compiler       compilerJSON      `json:"compiler"`
	Stage          string            `json:"stage"`
	Passed         bool              `json:"passed"`
	Warnings       bool              `json:"warnings"`
	Errors         bool              `json:"errors"`
	APIError       bool              `json:"api_error"`
	ImplValue      *int              `json:"impl_value"`
	Files          map[string]string `json:"files"`
	Stderr         map[string]string `json:"stderr"`
}

type compilerJSON struct {
	Nickname    string `json:"nickname"`
	DisplayName string `json:"display_name"`
	APIName     string `json:"api_name"`
}

// MarshalJSON renders the result in its on-disk shape, with the compiler
// identity nested under a single key.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		TestName:       r.TestName,
		Group:          r.Group,
		Variant:        r.Variant,
		VariantDisplay: r.VariantDisplay,
		IsAuto:         r.IsAuto,
		DetectValue:    r.DetectValue,
		Compiler: compilerJSON{
			Nickname:    r.CompilerNickname,
			DisplayName: r.CompilerDisplay,
			APIName:     r.CompilerAPI,
		},
		Stage:     r.Stage,
		Passed:    r.Passed,
		Warnings:  r.HasWarnings,
		Errors:    r.HasErrors,
		APIError:  r.APIError,
		ImplValue: r.ImplValue,
		Files:     r.Files,
		Stderr:    r.Stderr,
	})
}

// ReuseFor rebadges r as a run of test: identity fields are substituted,
// diagnostics and artifact paths carry over unchanged. The copy is marked
// non-auto since it stands in for an explicitly configured variant.
func (r *Result) ReuseFor(test *suite.Variant) *Result {
	reused := *r
	reused.TestName = test.TestName
	reused.Variant = test.Variant
	reused.VariantDisplay = test.DisplayName
	reused.IsAuto = false
	reused.DetectValue = test.DetectValue

	return &reused
}
