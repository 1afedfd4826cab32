package adapters

import (
	"context"
	"slices"

	"github.com/brettbedarf/docfs"
	"github.com/puzpuzpuz/xsync/v4"
)

// MemoryStore is an in-process [docfs.ContentStore]. Stored bodies are copied
// on the way in and out.
type MemoryStore struct {
	data *xsync.Map[string, []byte]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: xsync.NewMap[string, []byte]()}
}

func (s *MemoryStore) Get(ctx context.Context, contentID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data, ok := s.data.Load(contentID); ok {
		return slices.Clone(data), nil
	}
	return nil, docfs.ErrContentNotFound
}

func (s *MemoryStore) Put(ctx context.Context, contentID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data.Store(contentID, slices.Clone(data))
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, contentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data.Delete(contentID)
	return nil
}

// Len returns the number of stored bodies
func (s *MemoryStore) Len() int {
	return s.data.Size()
}

var _ docfs.ContentStore = (*MemoryStore)(nil)
