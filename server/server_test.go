package server

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/docfs/adapters"
	"github.com/brettbedarf/docfs/filesystem"
)

func TestServer_ServeAsyncWithConcurrentCallers(t *testing.T) {
	t.Parallel()

	s := New(filesystem.NewFS(), adapters.NewMemoryStore(), nil)
	done := s.ServeAsync(filepath.Join(t.TempDir(), "missing"))

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			s.Wait()
			assert.NoError(t, s.Unmount())
		})
	}

	err, ok := <-done
	require.True(t, ok)
	assert.Error(t, err)
	wg.Wait()

	assert.Nil(t, s.fuseServer())
	assert.NoError(t, s.Unmount())
}

func TestServer_FailedServeLeavesNoServer(t *testing.T) {
	t.Parallel()

	s := New(filesystem.NewFS(), adapters.NewMemoryStore(), nil)
	assert.Error(t, s.Serve(filepath.Join(t.TempDir(), "missing")))
	assert.Nil(t, s.fuseServer(), "failed mount leaves no server behind")
	s.Wait()
}
