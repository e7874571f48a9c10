package training

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteReport writes v as YAML to path. An empty path writes nothing.
func WriteReport(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
