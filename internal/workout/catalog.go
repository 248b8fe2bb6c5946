package workout

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Exercises []Exercise `yaml:"exercises"`
}

// DefaultCatalog returns the bundled exercise catalog in ID order.
func DefaultCatalog() ([]Exercise, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog decodes a YAML catalog and validates every entry.
func ParseCatalog(data []byte) ([]Exercise, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seenIDs := make(map[int]bool, len(file.Exercises))
	seenNames := make(map[string]bool, len(file.Exercises))
	for i, ex := range file.Exercises {
		if err := validateExercise(ex); err != nil {
			return nil, fmt.Errorf("exercise %d: %w", i, err)
		}
		if seenIDs[ex.ID] {
			return nil, fmt.Errorf("exercise %q: duplicate id %d", ex.Name, ex.ID)
		}
		if seenNames[ex.Name] {
			return nil, fmt.Errorf("exercise %q: duplicate name", ex.Name)
		}
		seenIDs[ex.ID] = true
		seenNames[ex.Name] = true
	}
	return file.Exercises, nil
}

func validateExercise(ex Exercise) error {
	switch {
	case ex.ID <= 0:
		return fmt.Errorf("id must be positive, got %d", ex.ID)
	case ex.Name == "":
		return fmt.Errorf("name is required")
	case ex.MuscleGroup == "":
		return fmt.Errorf("%s: muscle_group is required", ex.Name)
	case ex.MaxFraction < 0 || ex.MaxFraction > 1:
		return fmt.Errorf("%s: max_fraction %v out of range [0, 1]", ex.Name, ex.MaxFraction)
	case ex.BaseLoadKg < 0:
		return fmt.Errorf("%s: negative base_load_kg", ex.Name)
	}
	switch ex.Category {
	case CategoryCompound, CategoryAccessory, CategoryCore, CategoryCardio:
		return nil
	default:
		return fmt.Errorf("%s: unknown category %q", ex.Name, ex.Category)
	}
}
