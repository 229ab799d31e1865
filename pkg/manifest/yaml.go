package manifest

import (
	"errors"

	"gopkg.in/yaml.v3"
)

type yamlEntry Entry

// UnmarshalYAML lets a sequence item be a bare id string.
func (e *yamlEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.ID = node.Value
		return nil
	case yaml.MappingNode:
		var m struct {
			ID   string `yaml:"id"`
			Note string `yaml:"note"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		e.ID, e.Note = m.ID, m.Note
		return nil
	default:
		return errors.New("manifest item must be an id or a mapping with an id")
	}
}
