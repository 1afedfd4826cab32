package adapters

import (
	"fmt"
	"net/http"
	"time"

	"github.com/brettbedarf/docfs"
	"github.com/brettbedarf/docfs/config"
	"gopkg.in/yaml.v3"
)

type BuiltInStoreType = string

const (
	MemoryStoreType BuiltInStoreType = "memory"
	HTTPStoreType   BuiltInStoreType = "http"
)

// RegisterBuiltins registers all built-in stores by default
// or only the specific ones if types are provided
func RegisterBuiltins(r *Registry, cfg *config.Config, types ...BuiltInStoreType) {
	if len(types) == 0 {
		types = append(types, MemoryStoreType, HTTPStoreType)
	}
	timeout := config.DefaultStoreTimeout
	if cfg != nil {
		timeout = cfg.StoreTimeout
	}

	for _, key := range types {
		switch key {
		case MemoryStoreType:
			r.Register(MemoryStoreType, func([]byte) (docfs.ContentStore, error) {
				return NewMemoryStore(), nil
			})
		case HTTPStoreType:
			r.Register(HTTPStoreType, newHTTPFactory(http.DefaultClient, timeout))
		}
	}
}

func newHTTPFactory(client HTTPClient, timeout time.Duration) StoreFactory {
	return func(raw []byte) (docfs.ContentStore, error) {
		var src HTTPSource
		if err := yaml.Unmarshal(raw, &src); err != nil {
			return nil, fmt.Errorf("failed to unmarshal http store: %w", err)
		}
		return NewHTTPStore(src, client, timeout)
	}
}
