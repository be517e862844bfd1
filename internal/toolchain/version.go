package toolchain

import "regexp"

// Banner patterns for the compilers the matrix knows how to identify.
// Order matters: gcc banners are matched first.
var (
	gccVersionPattern   = regexp.MustCompile(`(?i)gcc.*?(\d+\.\d+(?:\.\d+)?)`)
	clangVersionPattern = regexp.MustCompile(`(?i)clang version (\d+\.\d+(?:\.\d+)?)`)
	tccVersionPattern   = regexp.MustCompile(`(?i)tcc version ([\d.]+\w*)`)
)

func parseVersionOutput(output string) *Version {
	if m := gccVersionPattern.FindStringSubmatch(output); m != nil {
		return &Version{Name: "gcc", Version: m[1]}
	}

	if m := clangVersionPattern.FindStringSubmatch(output); m != nil {
		return &Version{Name: "clang", Version: m[1]}
	}

	if m := tccVersionPattern.FindStringSubmatch(output); m != nil {
		return &Version{Name: "tcc", Version: m[1]}
	}

	return nil
}
