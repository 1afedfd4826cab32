package requests

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/docfs"
	"github.com/brettbedarf/docfs/filesystem"
	"github.com/brettbedarf/docfs/internal/util"
)

// GetNodeType extracts the node type without full unmarshaling.
// A missing type is reported as [docfs.FileType].
func GetNodeType(data []byte) (docfs.NodeType, error) {
	var meta struct {
		Type docfs.NodeType `yaml:"type"`
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return "", err
	}
	if meta.Type == "" {
		return docfs.FileType, nil
	}
	if !meta.Type.Valid() {
		return "", fmt.Errorf("unknown node type %q", meta.Type)
	}
	return meta.Type, nil
}

// UnmarshalDescriptor parses a single JSON or YAML descriptor object
func UnmarshalDescriptor(data []byte) (Entry, error) {
	var dto NodeDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return Entry{}, fmt.Errorf("failed to unmarshal descriptor: %w", err)
	}
	return convertNodeDTO(dto)
}

// UnmarshalDescriptors parses a JSON array or YAML list of descriptors.
// Entries are returned in file order; no ordering between parents and
// children is assumed.
func UnmarshalDescriptors(data []byte) ([]Entry, error) {
	var dtos []NodeDTO
	if err := yaml.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal descriptors: %w", err)
	}
	entries := make([]Entry, 0, len(dtos))
	for i, dto := range dtos {
		entry, err := convertNodeDTO(dto)
		if err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LoadDescriptorFile reads and parses a descriptor file
func LoadDescriptorFile(path string) ([]Entry, error) {
	logger := util.GetLogger("LoadDescriptorFile")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := UnmarshalDescriptors(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug().Str("path", path).Int("count", len(entries)).Msg("Loaded descriptors")
	return entries, nil
}

// convertNodeDTO applies defaults and validates the located name
func convertNodeDTO(dto NodeDTO) (Entry, error) {
	typ := dto.Type
	if typ == "" {
		typ = docfs.FileType
	}
	if !typ.Valid() {
		return Entry{}, fmt.Errorf("unknown node type %q", dto.Type)
	}

	parentPath, name := filesystem.Clean(dto.ParentPath), dto.Name
	if dto.Path != nil {
		parentPath, name = filesystem.Split(*dto.Path)
	}
	if !filesystem.ValidName(name) {
		return Entry{}, fmt.Errorf("invalid node name %q", name)
	}

	entry := Entry{
		Descriptor: docfs.NodeDescriptor{
			Name:       name,
			Type:       typ,
			ContentID:  util.ValueOrDefault(dto.ContentID, uuid.NewString()),
			ParentPath: parentPath,
		},
	}
	if entry.Descriptor.ContentID == "" {
		return Entry{}, fmt.Errorf("empty contentID for %q", name)
	}
	if dto.Content != nil {
		entry.Content = []byte(*dto.Content)
	}
	return entry, nil
}
