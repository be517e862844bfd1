package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testNames(tests []Variant) []string {
	names := make([]string, 0, len(tests))
	for _, v := range tests {
		names = append(names, v.TestName)
	}

	return names
}

func TestFilterCompilers(t *testing.T) {
	compilers := []Compiler{
		{APIName: "cg141", Nickname: "gcc14"},
		{APIName: "cclang1810", Nickname: "clang18"},
		{APIName: "ctcc0928", Nickname: "tcc"},
	}

	filtered := FilterCompilers(compilers, []string{"tcc", "gcc14"})
	assert.Equal(t, []string{"cg141", "ctcc0928"}, []string{filtered[0].APIName, filtered[1].APIName})

	assert.Empty(t, FilterCompilers(compilers, []string{"msvc"}))
}

func TestFilterTests(t *testing.T) {
	tests := []Variant{
		{TestName: "impl_auto", Variant: "auto"},
		{TestName: "impl_native", Variant: "native"},
		{TestName: "smoke", Variant: "smoke"},
	}

	// Matches by full test name or by bare variant name.
	assert.Equal(t, []string{"impl_native"}, testNames(FilterTests(tests, []string{"native"})))
	assert.Equal(t, []string{"impl_auto", "smoke"}, testNames(FilterTests(tests, []string{"impl_auto", "smoke"})))
	assert.Empty(t, FilterTests(tests, []string{"ghost"}))
}

func TestFilterGroups(t *testing.T) {
	tests := []Variant{
		{TestName: "a_x", Group: "a"},
		{TestName: "a_y", Group: "a"},
		{TestName: "b_x", Group: "b"},
	}

	assert.Equal(t, []string{"b_x"}, testNames(FilterGroups(tests, []string{"b"})))
	assert.Len(t, FilterGroups(tests, []string{"a", "b"}), 3)
}

func TestAutoOnly(t *testing.T) {
	tests := []Variant{
		{TestName: "impl_auto", Group: "impl", IsAuto: true},
		{TestName: "impl_native", Group: "impl"},
		{TestName: "impl_fallback", Group: "impl"},
		{TestName: "plain_x", Group: "plain"},
		{TestName: "plain_y", Group: "plain"},
	}

	// Groups with an auto variant collapse to it; groups without keep
	// every variant.
	got := testNames(AutoOnly(tests))
	assert.Equal(t, []string{"impl_auto", "plain_x", "plain_y"}, got)
}

func TestAutoOnly_Empty(t *testing.T) {
	assert.Empty(t, AutoOnly(nil))
}
