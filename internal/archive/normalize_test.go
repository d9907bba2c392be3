package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/pkgdiff/internal/testutil"
)

func TestStripCommonRootRoundTrip(t *testing.T) {
	t.Parallel()

	buf := testutil.Tar(t,
		testutil.DirMember("pkg-1.0.0/"),
		testutil.FileMember("pkg-1.0.0/index.js", "index"),
		testutil.FileMember("pkg-1.0.0/lib/a.js", "a"),
	)
	files, err := Parse(buf)
	require.NoError(t, err)

	got := StripCommonRoot(files)
	assert.Equal(t, Files{
		"index.js": {Type: File, Content: "index"},
		"lib":      {Type: Directory},
		"lib/a.js": {Type: File, Content: "a"},
	}, got)
	assert.NotContains(t, got, "pkg-1.0.0")
}

func TestStripCommonRootSynthesizedRoot(t *testing.T) {
	t.Parallel()

	files, err := Parse(testutil.Tar(t, testutil.FileMember("package/a.txt", "a")))
	require.NoError(t, err)

	assert.Equal(t, Files{"a.txt": {Type: File, Content: "a"}}, StripCommonRoot(files))
}

func TestStripCommonRootUnchanged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files Files
	}{
		{
			name:  "empty",
			files: Files{},
		},
		{
			name: "several top-level entries",
			files: Files{
				"README.md": {Type: File, Content: "readme"},
				"src":       {Type: Directory},
				"src/a.go":  {Type: File, Content: "a"},
			},
		},
		{
			name:  "single top-level file",
			files: Files{"index.js": {Type: File, Content: "x"}},
		},
		{
			name:  "root only",
			files: Files{"package": {Type: Directory}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.files, StripCommonRoot(tt.files))
		})
	}
}

func TestStripCommonRootRootMustBeDirectory(t *testing.T) {
	t.Parallel()

	files := Files{
		"pkg":     {Type: File, Content: "not a dir"},
		"pkg/a.x": {Type: File, Content: "a"},
	}
	assert.Equal(t, files, StripCommonRoot(files))
}

func TestStripCommonRootIdempotent(t *testing.T) {
	t.Parallel()

	files := Files{
		"package":          {Type: Directory},
		"package/index.js": {Type: File, Content: "i"},
		"package/lib":      {Type: Directory},
		"package/lib/a.js": {Type: File, Content: "a"},
	}

	once := StripCommonRoot(files)
	twice := StripCommonRoot(once)
	assert.Equal(t, once, twice)
	assert.NotEmpty(t, twice)
}

func TestStripCommonRootNeverEmpties(t *testing.T) {
	t.Parallel()

	inputs := []Files{
		{"a": {Type: Directory}},
		{"a": {Type: Directory}, "a/b": {Type: Directory}},
		{"x.txt": {Type: File}},
	}
	for _, files := range inputs {
		assert.NotEmpty(t, StripCommonRoot(files))
	}
}
