package adapters

import (
	"fmt"

	"github.com/brettbedarf/docfs"
	"github.com/puzpuzpuz/xsync/v4"
	"gopkg.in/yaml.v3"
)

// StoreFactory builds a content store from its raw definition.
// Definitions are YAML or JSON (JSON is valid YAML).
type StoreFactory func(raw []byte) (docfs.ContentStore, error)

// Registry ties store factories to a "type" key
type Registry struct {
	factories *xsync.Map[string, StoreFactory]
}

func NewRegistry() *Registry {
	return &Registry{factories: xsync.NewMap[string, StoreFactory]()}
}

// Register adds factory under storeType. The first registration for a type
// wins; returns false if storeType was already registered.
func (r *Registry) Register(storeType string, factory StoreFactory) bool {
	_, loaded := r.factories.LoadOrStore(storeType, factory)
	return !loaded
}

// Factory returns the factory registered for storeType
func (r *Registry) Factory(storeType string) (StoreFactory, error) {
	f, ok := r.factories.Load(storeType)
	if !ok {
		return nil, fmt.Errorf("no store factory for %q", storeType)
	}
	return f, nil
}

// GetStoreType extracts the store type without full unmarshaling
func GetStoreType(raw []byte) (string, error) {
	var meta struct {
		Type string `yaml:"type"`
	}
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return "", fmt.Errorf("failed to read store type: %w", err)
	}
	if meta.Type == "" {
		return "", fmt.Errorf("store definition has no type")
	}
	return meta.Type, nil
}

// NewStore picks the right factory based on the "type" field.
// All expected store types should be registered before calling this.
func (r *Registry) NewStore(raw []byte) (docfs.ContentStore, error) {
	storeType, err := GetStoreType(raw)
	if err != nil {
		return nil, err
	}
	f, err := r.Factory(storeType)
	if err != nil {
		return nil, err
	}
	return f(raw)
}
