package cla

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const manifestName = "toolset.yaml"

// Manifest is the optional descriptor shipped inside an installed toolset
// directory. Executables, when listed, close the set of binaries scripts may
// resolve; Uses names toolsets whose directories every command from this
// toolset needs on its search path.
type Manifest struct {
	Executables []string `yaml:"executables"`
	Uses        []string `yaml:"uses"`
}

func loadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if os.IsNotExist(err) {
		return Manifest{}, nil
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest read: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest parse: %w", err)
	}
	return m, nil
}

func (m Manifest) declares(executable string) bool {
	for _, name := range m.Executables {
		if name == executable {
			return true
		}
	}
	return false
}
