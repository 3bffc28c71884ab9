package value

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML lets submission files carry attribute objects directly.
func (obj *Object) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}

	out := make(Object, len(raw))
	for k, elem := range raw {
		v, err := FromAny(elem)
		if err != nil {
			return fmt.Errorf("line %d: attribute %q: %w", node.Line, k, err)
		}
		out[k] = v
	}
	*obj = out
	return nil
}
