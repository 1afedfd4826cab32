package docfs

import "context"

// ContentStore is the remote store of document bodies keyed by contentID.
// The tree never reads or writes content itself; collaborators such as the
// editor viewer and the FUSE server query it.
type ContentStore interface {
	// Get returns the document body for contentID or [ErrContentNotFound]
	Get(ctx context.Context, contentID string) ([]byte, error)

	// Put stores (or replaces) the document body for contentID
	Put(ctx context.Context, contentID string, data []byte) error

	// Delete removes the document body. Deleting missing content is not an error
	Delete(ctx context.Context, contentID string) error
}

// Tab is the UI container a viewer is bound to. It only needs to know when
// the bound file's label changes.
type Tab interface {
	Rename(title string)
}
