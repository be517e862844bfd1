package suite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	errCompilerMissingAPIName = errors.New("compiler entry missing api_name")
	errBothLocalModes         = errors.New("compiler enables both local_asm and local_compile")
	errDuplicateTestName      = errors.New("duplicate test name")
	errMultipleAutoVariants   = errors.New("group has multiple auto variants")
)

type rawSuite struct {
	Compilers []rawCompiler `yaml:"compilers"`
	Tests     []rawTest     `yaml:"tests"`
}

type rawCompiler struct {
	APIName           string   `yaml:"api_name"`
	DisplayName       string   `yaml:"display_name"`
	Nickname          string   `yaml:"nickname"`
	ExtraFlags        []string `yaml:"extra_flags"`
	LocalASM          bool     `yaml:"local_asm"`
	Assembler         string   `yaml:"assembler"`
	AssemblerArgs     []string `yaml:"assembler_args"`
	Linker            string   `yaml:"linker"`
	LocalLinkerArgs   []string `yaml:"local_linker_args"`
	LocalCompile      bool     `yaml:"local_compile"`
	LocalCompiler     string   `yaml:"local_compiler"`
	LocalCompilerArgs []string `yaml:"local_compiler_args"`
}

// rawTest is both a group entry (with Variants) and a variant entry.
// Scalar fields are pointers so an explicit value, even a zero one,
// overrides the group default.
type rawTest struct {
	Group              string    `yaml:"group"`
	Variant            string    `yaml:"variant"`
	Name               string    `yaml:"name"`
	TestName           string    `yaml:"test_name"`
	FileName           *string   `yaml:"file_name"`
	DisplayName        *string   `yaml:"display_name"`
	DetectMacro        *string   `yaml:"detect_macro"`
	DetectValue        *int      `yaml:"detect_value"`
	Auto               *bool     `yaml:"auto"`
	IncludeInTable     *bool     `yaml:"include_in_table"`
	PrependLines       []string  `yaml:"prepend_lines"`
	AdditionalFiles    []string  `yaml:"additional_files"`
	IncludeDirs        []string  `yaml:"include_dirs"`
	IncludeDirectories []string  `yaml:"include_directories"`
	Variants           []rawTest `yaml:"variants"`
}

// Loader loads suite definition files.
type Loader interface {
	Load(path string) (*Suite, error)
}

type loader struct {
	log logrus.FieldLogger
}

var _ Loader = (*loader)(nil)

// NewLoader creates a suite file loader.
func NewLoader(log logrus.FieldLogger) Loader {
	return &loader{
		log: log.WithField("component", "suite_loader"),
	}
}

// Load reads, parses and validates a suite file. Relative file references
// resolve against the suite file's directory.
func (l *loader) Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading suite config from user-provided path
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving suite path: %w", err)
	}

	s.ResolvePaths(filepath.Dir(abs))

	l.log.WithFields(logrus.Fields{
		"path":      path,
		"compilers": len(s.Compilers),
		"tests":     len(s.Tests),
	}).Debug("loaded suite")

	return s, nil
}

// Parse decodes a suite definition, applies group defaults to every variant
// and validates the result. File paths are left as written; ResolvePaths
// anchors them to a directory.
func Parse(data []byte) (*Suite, error) {
	var raw rawSuite
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	s := &Suite{}

	for i, rc := range raw.Compilers {
		c, err := parseCompiler(rc)
		if err != nil {
			return nil, fmt.Errorf("compiler %d: %w", i, err)
		}

		s.Compilers = append(s.Compilers, c)
	}

	for _, entry := range raw.Tests {
		if entry.Variants != nil {
			for _, v := range entry.Variants {
				s.Tests = append(s.Tests, mergeVariant(v, entry))
			}

			continue
		}

		// Flat format: the entry is both the group and its only variant.
		s.Tests = append(s.Tests, mergeVariant(entry, rawTest{Group: entry.Group}))
	}

	if err := validate(s); err != nil {
		return nil, err
	}

	return s, nil
}

func parseCompiler(raw rawCompiler) (Compiler, error) {
	if raw.APIName == "" {
		return Compiler{}, errCompilerMissingAPIName
	}

	if raw.LocalASM && raw.LocalCompile {
		return Compiler{}, fmt.Errorf("%w: %s", errBothLocalModes, raw.APIName)
	}

	c := Compiler{
		APIName:           raw.APIName,
		DisplayName:       raw.DisplayName,
		Nickname:          raw.Nickname,
		ExtraFlags:        raw.ExtraFlags,
		LocalASM:          raw.LocalASM,
		Assembler:         raw.Assembler,
		AssemblerArgs:     raw.AssemblerArgs,
		Linker:            raw.Linker,
		LocalLinkerArgs:   raw.LocalLinkerArgs,
		LocalCompile:      raw.LocalCompile,
		LocalCompiler:     raw.LocalCompiler,
		LocalCompilerArgs: raw.LocalCompilerArgs,
	}

	if c.DisplayName == "" {
		c.DisplayName = c.APIName
	}

	if c.Assembler == "" {
		c.Assembler = "as"
	}

	if c.Linker == "" {
		c.Linker = "gcc"
	}

	if c.LocalCompiler == "" {
		c.LocalCompiler = "gcc"
	}

	return c, nil
}

// mergeVariant applies group defaults to one variant entry: scalar fields
// override when present, list fields concatenate group-first with items
// de-duplicated by value.
func mergeVariant(d, group rawTest) Variant {
	groupName := group.Group
	if groupName == "" {
		groupName = "default"
	}

	name := d.Variant
	if name == "" {
		name = d.Name
	}

	if name == "" {
		name = d.TestName
	}

	testName := d.TestName
	if testName == "" {
		testName = fmt.Sprintf("%s_%s", groupName, name)
	}

	isAuto := false
	if group.Auto != nil {
		isAuto = *group.Auto
	}

	if d.Auto != nil {
		isAuto = *d.Auto
	}

	includeInTable := !isAuto
	if group.IncludeInTable != nil {
		includeInTable = *group.IncludeInTable
	}

	if d.IncludeInTable != nil {
		includeInTable = *d.IncludeInTable
	}

	detectValue := d.DetectValue
	if detectValue == nil {
		detectValue = group.DetectValue
	}

	additional := mergeLists(group.AdditionalFiles, d.AdditionalFiles)
	aux := make([]AuxFile, 0, len(additional))

	for _, f := range additional {
		aux = append(aux, AuxFile{Name: f, Path: f})
	}

	return Variant{
		TestName:        testName,
		Variant:         name,
		Group:           groupName,
		FileName:        stringOr(d.FileName, stringOr(group.FileName, "")),
		DisplayName:     stringOr(d.DisplayName, stringOr(group.DisplayName, name)),
		PrependLines:    mergeLists(group.PrependLines, d.PrependLines),
		DetectMacro:     stringOr(d.DetectMacro, stringOr(group.DetectMacro, "")),
		DetectValue:     detectValue,
		IsAuto:          isAuto,
		IncludeInTable:  includeInTable,
		AdditionalFiles: aux,
		IncludeDirs: mergeMultiKeyLists(
			[][]string{group.IncludeDirs, group.IncludeDirectories},
			[][]string{d.IncludeDirs, d.IncludeDirectories},
		),
	}
}

func validate(s *Suite) error {
	seen := make(map[string]struct{}, len(s.Tests))
	autoByGroup := make(map[string]bool)

	for _, t := range s.Tests {
		if _, ok := seen[t.TestName]; ok {
			return fmt.Errorf("%w: %s", errDuplicateTestName, t.TestName)
		}

		seen[t.TestName] = struct{}{}

		if !t.IsAuto {
			continue
		}

		if autoByGroup[t.Group] {
			return fmt.Errorf("%w: %s", errMultipleAutoVariants, t.Group)
		}

		autoByGroup[t.Group] = true
	}

	return nil
}

func stringOr(v *string, fallback string) string {
	if v != nil {
		return *v
	}

	return fallback
}

// mergeLists keeps the group list as-is and appends variant items that are
// not already present.
func mergeLists(group, variant []string) []string {
	if len(group) == 0 && len(variant) == 0 {
		return nil
	}

	result := make([]string, 0, len(group)+len(variant))
	result = append(result, group...)

	for _, item := range variant {
		if !slices.Contains(result, item) {
			result = append(result, item)
		}
	}

	return result
}

// mergeMultiKeyLists merges values that may appear under several equivalent
// keys, group lists first, de-duplicating everything.
func mergeMultiKeyLists(groupLists, variantLists [][]string) []string {
	var result []string

	for _, lists := range [][][]string{groupLists, variantLists} {
		for _, list := range lists {
			for _, item := range list {
				if !slices.Contains(result, item) {
					result = append(result, item)
				}
			}
		}
	}

	return result
}
