package requests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/docfs"
)

func TestGetNodeType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    docfs.NodeType
		wantErr bool
	}{
		{`{"type": "dir", "name": "docs"}`, docfs.DirType, false},
		{`{"type": "file"}`, docfs.FileType, false},
		{`{"name": "readme.md"}`, docfs.FileType, false},
		{"type: dir\nname: docs\n", docfs.DirType, false},
		{`{"type": "symlink"}`, "", true},
		{`[not: valid`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := GetNodeType([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalDescriptor(t *testing.T) {
	t.Parallel()

	entry, err := UnmarshalDescriptor([]byte(`{"name": "readme.md", "type": "file", "contentID": "f1", "parentPath": "/docs/"}`))
	require.NoError(t, err)
	assert.Equal(t, docfs.NodeDescriptor{
		Name: "readme.md", Type: docfs.FileType, ContentID: "f1", ParentPath: "docs",
	}, entry.Descriptor)
	assert.Nil(t, entry.Content)
}

func TestUnmarshalDescriptor_Defaults(t *testing.T) {
	t.Parallel()

	entry, err := UnmarshalDescriptor([]byte(`{"name": "notes.md"}`))
	require.NoError(t, err)

	assert.Equal(t, docfs.FileType, entry.Descriptor.Type)
	assert.Equal(t, "", entry.Descriptor.ParentPath)
	_, err = uuid.Parse(entry.Descriptor.ContentID)
	assert.NoError(t, err, "missing contentID should default to a UUID")
}

func TestUnmarshalDescriptor_PathShorthand(t *testing.T) {
	t.Parallel()

	entry, err := UnmarshalDescriptor([]byte(`{"path": "@/docs/sub/readme.md", "name": "ignored", "contentID": "f2"}`))
	require.NoError(t, err)
	assert.Equal(t, "docs/sub", entry.Descriptor.ParentPath)
	assert.Equal(t, "readme.md", entry.Descriptor.Name)
}

func TestUnmarshalDescriptor_Rejects(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing name":  `{"type": "file"}`,
		"slash in name": `{"name": "a/b"}`,
		"bad type":      `{"name": "a", "type": "pipe"}`,
		"empty id":      `{"name": "a", "contentID": ""}`,
		"root path":     `{"path": "@"}`,
	}
	for desc, raw := range tests {
		t.Run(desc, func(t *testing.T) {
			_, err := UnmarshalDescriptor([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalDescriptors(t *testing.T) {
	t.Parallel()

	jsonDefs := `[
		{"path": "docs/sub/readme.md", "contentID": "f2", "content": "# Hi"},
		{"name": "docs", "type": "dir", "contentID": "d1"},
		{"name": "sub", "type": "dir", "contentID": "d2", "parentPath": "docs"}
	]`
	yamlDefs := `
- path: docs/sub/readme.md
  contentID: f2
  content: "# Hi"
- name: docs
  type: dir
  contentID: d1
- name: sub
  type: dir
  contentID: d2
  parentPath: docs
`
	for name, raw := range map[string]string{"json": jsonDefs, "yaml": yamlDefs} {
		t.Run(name, func(t *testing.T) {
			entries, err := UnmarshalDescriptors([]byte(raw))
			require.NoError(t, err)
			require.Len(t, entries, 3)

			assert.Equal(t, "docs/sub", entries[0].Descriptor.ParentPath)
			assert.Equal(t, "# Hi", string(entries[0].Content))
			assert.Equal(t, docfs.DirType, entries[1].Descriptor.Type)
			assert.Equal(t, "d2", entries[2].Descriptor.ContentID)
		})
	}
}

func TestUnmarshalDescriptors_ReportsIndex(t *testing.T) {
	t.Parallel()

	_, err := UnmarshalDescriptors([]byte(`[{"name": "ok"}, {"name": ""}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descriptor 1")

	_, err = UnmarshalDescriptors([]byte(`{"name": "not a list"}`))
	assert.Error(t, err)
}

func TestLoadDescriptorFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nodes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: docs\n  type: dir\n"), 0o644))

	entries, err := LoadDescriptorFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "docs", entries[0].Descriptor.Name)

	_, err = LoadDescriptorFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
