package types

import (
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/kevmo314/offsetview/pkg/encoding"
	"github.com/kevmo314/offsetview/pkg/pointer"
)

// Config is the YAML form of a type table.
//
//	pointer_width: 8
//	byte_order: little
//	types:
//	  - name: vec3
//	    size: 12
//	    kind: struct
//	  - name: points
//	    kind: offset_span
//	    elem: vec3
type Config struct {
	PointerWidth int          `yaml:"pointer_width"`
	ByteOrder    string       `yaml:"byte_order"`
	Types        []TypeConfig `yaml:"types"`
}

type TypeConfig struct {
	Name string `yaml:"name"`
	Size uint64 `yaml:"size"`
	Kind string `yaml:"kind"`
	Elem string `yaml:"elem"`
}

func (c Config) Layout() (encoding.Layout, error) {
	l := encoding.DefaultLayout
	if c.PointerWidth != 0 {
		l.PointerWidth = pointer.Width(c.PointerWidth)
	}
	order, err := encoding.ParseByteOrder(c.ByteOrder)
	if err != nil {
		return l, err
	}
	l.Order = order
	return l, l.Validate()
}

// Table builds a table from c. Types are defined in order, so an elem must
// name a builtin, an earlier entry or an offset_ptr/offset_span expression
// over those.
func (c Config) Table() (*Table, error) {
	layout, err := c.Layout()
	if err != nil {
		return nil, err
	}
	t := NewTable(layout)
	for i, tc := range c.Types {
		kind, err := ParseKind(tc.Kind)
		if err != nil {
			return nil, fmt.Errorf("types[%d] %s: %w", i, tc.Name, err)
		}
		typ := &Type{Name: tc.Name, Size: tc.Size, Kind: kind}
		if tc.Elem != "" {
			if typ.Elem, err = t.Lookup(tc.Elem); err != nil {
				return nil, fmt.Errorf("types[%d] %s: %w", i, tc.Name, err)
			}
		}
		if err := t.Define(typ); err != nil {
			return nil, fmt.Errorf("types[%d]: %w", i, err)
		}
	}
	return t, nil
}

// LoadTable reads a YAML type file.
func LoadTable(r io.Reader) (*Table, error) {
	var c Config
	if err := yaml.NewDecoder(r, yaml.Strict()).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode type file: %w", err)
	}
	return c.Table()
}
