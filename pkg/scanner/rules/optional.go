package rules

import "gopkg.in/yaml.v3"

// Optional carries a value together with an explicit presence flag, so that a
// configured zero (min_entropy: 0, keywords: []) is distinguishable from an
// omitted field. A YAML null leaves the field unset.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

func (o *Optional[T]) UnmarshalYAML(node *yaml.Node) error {
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	o.Value = v
	o.Set = true
	return nil
}

func (o Optional[T]) MarshalYAML() (interface{}, error) {
	if !o.Set {
		return nil, nil
	}
	return o.Value, nil
}

// IsZero lets omitempty drop unset values when marshalling.
func (o Optional[T]) IsZero() bool {
	return !o.Set
}
