package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// modelsFile is the TOML structure of the model catalogue file.
type modelsFile struct {
	Models []modelEntry `toml:"models"`
}

// modelEntry is one catalogue row. Active is a pointer so an omitted
// field defaults to true rather than false.
type modelEntry struct {
	Name     string `toml:"name"`
	Provider string `toml:"provider"`
	Category string `toml:"category"`
	Cost     int    `toml:"cost"`
	Active   *bool  `toml:"active,omitempty"`
}

// DefaultModelsPath returns the conventional catalogue location,
// ~/.grimoire/models.toml.
func DefaultModelsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".grimoire", "models.toml"), nil
}

// LoadModelCatalog reads the model catalogue from path. An empty path
// selects the default location. A missing file yields the built-in
// catalogue; a malformed file or invalid descriptor is an error, not a
// silent fallback.
func LoadModelCatalog(path string) ([]domain.ModelDescriptor, error) {
	if path == "" {
		var err error
		path, err = DefaultModelsPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultModelCatalog(), nil
		}
		return nil, fmt.Errorf("read model catalogue: %w", err)
	}

	var parsed modelsFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse model catalogue %s: %w", path, err)
	}
	if len(parsed.Models) == 0 {
		return nil, fmt.Errorf("model catalogue %s defines no models", path)
	}

	catalog := make([]domain.ModelDescriptor, 0, len(parsed.Models))
	for _, entry := range parsed.Models {
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		descriptor := domain.ModelDescriptor{
			Name:     entry.Name,
			Provider: domain.AIProvider(entry.Provider),
			Category: domain.ModelCategory(entry.Category),
			Cost:     entry.Cost,
			Active:   active,
		}
		if err := descriptor.Validate(); err != nil {
			return nil, fmt.Errorf("model catalogue %s: %w", path, err)
		}
		catalog = append(catalog, descriptor)
	}
	return catalog, nil
}

// SaveModelCatalog writes the catalogue to path, creating the parent
// directory if needed. An empty path selects the default location.
func SaveModelCatalog(path string, catalog []domain.ModelDescriptor) error {
	if path == "" {
		var err error
		path, err = DefaultModelsPath()
		if err != nil {
			return err
		}
	}

	entries := make([]modelEntry, 0, len(catalog))
	for _, descriptor := range catalog {
		active := descriptor.Active
		entries = append(entries, modelEntry{
			Name:     descriptor.Name,
			Provider: descriptor.Provider.String(),
			Category: descriptor.Category.String(),
			Cost:     descriptor.Cost,
			Active:   &active,
		})
	}

	data, err := toml.Marshal(modelsFile{Models: entries})
	if err != nil {
		return fmt.Errorf("marshal model catalogue: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create catalogue directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write model catalogue: %w", err)
	}
	return nil
}
