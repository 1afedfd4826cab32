package requests

import "github.com/brettbedarf/docfs"

// NodeDTO is the file representation of a [docfs.NodeDescriptor].
//
// Either Name (with ParentPath) or Path locates the node. Path is split into
// parentPath/name and wins when both are set.
type NodeDTO struct {
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Type       docfs.NodeType `json:"type,omitempty" yaml:"type,omitempty"`           // Default "file"
	ContentID  *string        `json:"contentID,omitempty" yaml:"contentID,omitempty"` // Default new UUID
	ParentPath string         `json:"parentPath,omitempty" yaml:"parentPath,omitempty"`
	Path       *string        `json:"path,omitempty" yaml:"path,omitempty"`
	// Content is an optional inline document body to seed the content store with
	Content *string `json:"content,omitempty" yaml:"content,omitempty"`
}

// Entry is one parsed descriptor with its optional inline body
type Entry struct {
	Descriptor docfs.NodeDescriptor
	Content    []byte // nil when the file carried no inline body
}
