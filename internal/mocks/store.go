package mocks

import (
	"context"

	"github.com/brettbedarf/docfs"
	"github.com/stretchr/testify/mock"
)

// MockContentStore implements docfs.ContentStore for testing across packages
type MockContentStore struct {
	mock.Mock
}

func (m *MockContentStore) Get(ctx context.Context, contentID string) ([]byte, error) {
	args := m.Called(ctx, contentID)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(context.Context, string) []byte); ok {
		return fn(ctx, contentID), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockContentStore) Put(ctx context.Context, contentID string, data []byte) error {
	args := m.Called(ctx, contentID, data)
	return args.Error(0)
}

func (m *MockContentStore) Delete(ctx context.Context, contentID string) error {
	args := m.Called(ctx, contentID)
	return args.Error(0)
}

var _ docfs.ContentStore = (*MockContentStore)(nil)

// MockTab implements docfs.Tab for testing across packages
type MockTab struct {
	mock.Mock
}

func (m *MockTab) Rename(title string) {
	m.Called(title)
}

var _ docfs.Tab = (*MockTab)(nil)
