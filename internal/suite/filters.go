package suite

import "slices"

// FilterCompilers keeps compilers whose nickname is in names.
func FilterCompilers(compilers []Compiler, names []string) []Compiler {
	var result []Compiler

	for _, c := range compilers {
		if slices.Contains(names, c.Nickname) {
			result = append(result, c)
		}
	}

	return result
}

// FilterTests keeps variants whose test name or variant name is in names.
func FilterTests(tests []Variant, names []string) []Variant {
	var result []Variant

	for _, t := range tests {
		if slices.Contains(names, t.TestName) || slices.Contains(names, t.Variant) {
			result = append(result, t)
		}
	}

	return result
}

// FilterGroups keeps variants belonging to the named groups.
func FilterGroups(tests []Variant, groups []string) []Variant {
	var result []Variant

	for _, t := range tests {
		if slices.Contains(groups, t.Group) {
			result = append(result, t)
		}
	}

	return result
}

// AutoOnly keeps auto variants, plus every variant of a group that has no
// auto variant at all.
func AutoOnly(tests []Variant) []Variant {
	groupsWithAuto := make(map[string]bool)

	for _, t := range tests {
		if t.IsAuto {
			groupsWithAuto[t.Group] = true
		}
	}

	var result []Variant

	for _, t := range tests {
		if t.IsAuto || !groupsWithAuto[t.Group] {
			result = append(result, t)
		}
	}

	return result
}
