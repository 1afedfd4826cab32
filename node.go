package docfs

// NodeType tags a node as a file or a directory.
// Valid types are FileType "file", DirType "dir"
type NodeType string

const (
	FileType NodeType = "file"
	DirType  NodeType = "dir"
)

// Valid reports whether t is a known node type
func (t NodeType) Valid() bool {
	return t == FileType || t == DirType
}

// NodeDescriptor is the plain attribute record used to create or sync a node.
// It is what the network layer relays for a remote node.
type NodeDescriptor struct {
	Name       string   `json:"name" yaml:"name"`
	Type       NodeType `json:"type" yaml:"type"`
	ContentID  string   `json:"contentID" yaml:"contentID"`
	ParentPath string   `json:"parentPath" yaml:"parentPath"`
}

// Attrs returns the descriptor as a full change set.
func (d NodeDescriptor) Attrs() NodeAttrs {
	return NodeAttrs{
		Name:       &d.Name,
		Type:       &d.Type,
		ContentID:  &d.ContentID,
		ParentPath: &d.ParentPath,
	}
}

// NodeAttrs is a partial change set applied by a node's Change.
// Nil fields are left untouched.
type NodeAttrs struct {
	Name       *string
	Type       *NodeType
	ParentPath *string
	ContentID  *string
}

// IsEmpty returns true if no attribute is set
func (a NodeAttrs) IsEmpty() bool {
	return a.Name == nil && a.Type == nil && a.ParentPath == nil && a.ContentID == nil
}
