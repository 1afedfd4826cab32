package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"@", ""},
		{"/", ""},
		{"@/", ""},
		{"docs", "docs"},
		{"/docs", "docs"},
		{"@/docs", "docs"},
		{"docs/", "docs"},
		{"  docs/sub  ", "docs/sub"},
		{"docs//sub", "docs/sub"},
		{"docs/./sub", "docs/sub"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clean(tt.in), "Clean(%q)", tt.in)
	}
}

func TestJoinSplit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "docs", Join("", "docs"))
	assert.Equal(t, "docs", Join("@", "docs"))
	assert.Equal(t, "docs/readme.md", Join("docs", "readme.md"))
	assert.Equal(t, "docs/readme.md", Join("/docs/", "readme.md"))

	parent, name := Split("docs/sub/readme.md")
	assert.Equal(t, "docs/sub", parent)
	assert.Equal(t, "readme.md", name)

	parent, name = Split("docs")
	assert.Equal(t, "", parent)
	assert.Equal(t, "docs", name)
}

func TestSegments(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, Segments("a/b/c"))
	assert.Equal(t, []string{"a"}, Segments("/a"))
	assert.Nil(t, Segments(""))
	assert.Nil(t, Segments("@"))
}

func TestValidName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"readme.md", "docs", ".hidden", "a b"} {
		assert.True(t, ValidName(name), name)
	}
	for _, name := range []string{"", ".", "..", "@", "a/b", "/"} {
		assert.False(t, ValidName(name), name)
	}
}

func TestIsWithin(t *testing.T) {
	t.Parallel()

	assert.True(t, isWithin("a", "a"))
	assert.True(t, isWithin("a/b", "a"))
	assert.False(t, isWithin("ab", "a"))
	assert.False(t, isWithin("b/a", "a"))
}
