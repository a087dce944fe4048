package compiler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML sidecar written next to a compiled domain. Problem
// compilation loads it so that constant and task ids agree with the
// generated domain.
type Manifest struct {
	Domain         string   `yaml:"domain"`
	Constants      []string `yaml:"constants"`
	CompoundTasks  []string `yaml:"compound_tasks"`
	PrimitiveTasks []string `yaml:"primitive_tasks"`
	Natives        []string `yaml:"natives,omitempty"`
	Comparators    []string `yaml:"comparators,omitempty"`
	VarsMaxSize    int      `yaml:"vars_max_size"`
}

// Manifest returns the sidecar describing def.
func (def *DomainDef) Manifest() *Manifest {
	return &Manifest{
		Domain:         def.Name,
		Constants:      def.Constants,
		CompoundTasks:  def.CompoundTasks,
		PrimitiveTasks: def.PrimitiveTasks,
		Natives:        def.Natives,
		Comparators:    def.Comparators,
		VarsMaxSize:    def.VarsMaxSize,
	}
}

// Marshal encodes m as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// UnmarshalManifest decodes a manifest.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Domain == "" {
		return nil, fmt.Errorf("manifest has no domain name")
	}
	return &m, nil
}

// LoadManifest reads the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := UnmarshalManifest(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}
