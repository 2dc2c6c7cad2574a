package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateDefault(t *testing.T) {
	tmpl, err := Compile(DefaultTemplate)
	require.NoError(t, err)

	run, seq, ok := tmpl.Match("test_01_00001.tif")
	require.True(t, ok)
	assert.Equal(t, 1, run)
	assert.Equal(t, 1, seq)

	run, seq, ok = tmpl.Match("test_10_18000.tif")
	require.True(t, ok)
	assert.Equal(t, 10, run)
	assert.Equal(t, 18000, seq)
}

func TestTemplateRejects(t *testing.T) {
	tmpl := MustCompile(DefaultTemplate)

	for _, name := range []string{
		"test_1_00001.tif",     // run too short
		"test_01_0001.tif",     // seq too short
		"test_01_000001.tif",   // seq too long
		"test_01_00001.tiff",   // extension
		"test_01_00001.tif~",   // trailing junk
		"xtest_01_00001.tif",   // prefix
		"img_01_00001.tif",     // other prefix
		"test_ab_00001.tif",    // not digits
		".test_01_00001.tif",   // hidden
		"test_01_00001.snappy", // output file
	} {
		t.Run(name, func(t *testing.T) {
			_, _, ok := tmpl.Match(name)
			assert.False(t, ok)
		})
	}
}

func TestTemplateDotIsLiteral(t *testing.T) {
	tmpl := MustCompile("a_#_#.tif")
	_, _, ok := tmpl.Match("a_1_2xtif")
	assert.False(t, ok)
	_, _, ok = tmpl.Match("a_1_2.tif")
	assert.True(t, ok)
}

func TestTemplateCustomWidths(t *testing.T) {
	tmpl := MustCompile("scan-###.####.raw")

	run, seq, ok := tmpl.Match("scan-007.0420.raw")
	require.True(t, ok)
	assert.Equal(t, 7, run)
	assert.Equal(t, 420, seq)
	assert.Equal(t, 9999, tmpl.MaxSeq())
}

func TestTemplateGlobPrefix(t *testing.T) {
	tmpl := MustCompile("*_##_#####.tif")

	run, seq, ok := tmpl.Match("detector-a_02_00100.tif")
	require.True(t, ok)
	assert.Equal(t, 2, run)
	assert.Equal(t, 100, seq)

	_, err := tmpl.Format(1, 1)
	assert.Error(t, err)
}

func TestTemplateFormat(t *testing.T) {
	tmpl := MustCompile("img_##_#####.tif")

	name, err := tmpl.Format(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "img_01_00001.tif", name)

	name, err = tmpl.Format(10, 18000)
	require.NoError(t, err)
	assert.Equal(t, "img_10_18000.tif", name)

	_, err = tmpl.Format(100, 1)
	assert.Error(t, err)
	_, err = tmpl.Format(1, -1)
	assert.Error(t, err)
}

func TestTemplateFormatMatchAgree(t *testing.T) {
	tmpl := MustCompile(DefaultTemplate)
	for _, tc := range [][2]int{{1, 1}, {3, 99}, {99, 99999}} {
		name, err := tmpl.Format(tc[0], tc[1])
		require.NoError(t, err)
		run, seq, ok := tmpl.Match(name)
		require.True(t, ok, name)
		assert.Equal(t, tc[0], run)
		assert.Equal(t, tc[1], seq)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{"empty", ""},
		{"no fields", "plain.tif"},
		{"one field", "img_#####.tif"},
		{"three fields", "img_##_##_##.tif"},
		{"path", "dir/img_##_#####.tif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.template)
			assert.Error(t, err)
		})
	}
}

func TestCompileNoFieldsSentinel(t *testing.T) {
	_, err := Compile("img_#####.tif")
	require.ErrorIs(t, err, ErrNoFields)
}

func TestGlobToRegexClass(t *testing.T) {
	tmpl := MustCompile("[ab]_##_##.tif")
	_, _, ok := tmpl.Match("a_01_01.tif")
	assert.True(t, ok)
	_, _, ok = tmpl.Match("c_01_01.tif")
	assert.False(t, ok)

	neg := MustCompile("[!ab]_##_##.tif")
	_, _, ok = neg.Match("c_01_01.tif")
	assert.True(t, ok)
	_, _, ok = neg.Match("a_01_01.tif")
	assert.False(t, ok)
}
