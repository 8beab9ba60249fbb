package inference

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Labels maps model class IDs to human-readable names.
type Labels map[int]string

// Lookup returns the label for a class ID, or a placeholder for IDs the map
// does not cover.
func (l Labels) Lookup(classID int) string {
	if label, exists := l[classID]; exists {
		return label
	}
	return fmt.Sprintf("unknown%d", classID)
}

// DefaultLabels covers the SSD COCO classes the pipeline cares about.
func DefaultLabels() Labels {
	return Labels{
		1:  "person",
		2:  "bicycle",
		3:  "car",
		4:  "motorcycle",
		5:  "airplane",
		6:  "bus",
		8:  "truck",
		16: "bird",
		17: "cat",
		18: "dog",
	}
}

// LoadLabels reads a YAML class-ID-to-name mapping. An empty path selects the
// built-in defaults.
func LoadLabels(path string) (Labels, error) {
	if path == "" {
		return DefaultLabels(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}

	var labels Labels
	if err := yaml.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s defines no classes", path)
	}

	return labels, nil
}
