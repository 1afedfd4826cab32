package config

// MountOptions holds high-level settings for mounting the tree.
// No go-fuse types are exposed here.
type MountOptions struct {
	Debug  bool   // fuse debug logs
	FsName string `validate:"required"` // mount's FsName
	Name   string `validate:"required"` // mount's Name
}
