package topology

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads a topology file, validates it, and returns a frozen Topology.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}

	var td TopologyData
	if err := yaml.Unmarshal(data, &td); err != nil {
		return nil, fmt.Errorf("failed to parse topology YAML: %w", err)
	}

	if td.Version != 1 {
		return nil, fmt.Errorf("unsupported topology version: %d", td.Version)
	}

	if err := validator.New().Struct(td); err != nil {
		return nil, fmt.Errorf("invalid topology data: %w", err)
	}

	return Build(td)
}
