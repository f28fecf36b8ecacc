package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kevmo314/offsetview/pkg/encoding"
)

// Table is a registry of named types for one image layout. It is safe for
// concurrent use.
type Table struct {
	layout encoding.Layout

	mu    sync.RWMutex
	types map[string]*Type
}

var builtins = []Type{
	{Name: "bool", Size: 1},
	{Name: "char", Size: 1},
	{Name: "int8", Size: 1},
	{Name: "uint8", Size: 1},
	{Name: "int16", Size: 2},
	{Name: "uint16", Size: 2},
	{Name: "int32", Size: 4},
	{Name: "uint32", Size: 4},
	{Name: "float32", Size: 4},
	{Name: "int64", Size: 8},
	{Name: "uint64", Size: 8},
	{Name: "float64", Size: 8},
}

// NewTable returns a table holding the builtin scalar types.
func NewTable(layout encoding.Layout) *Table {
	t := &Table{layout: layout, types: make(map[string]*Type, len(builtins))}
	for i := range builtins {
		b := builtins[i]
		t.types[b.Name] = &b
	}
	return t
}

func (t *Table) Layout() encoding.Layout {
	return t.layout
}

// Define adds typ to the table. Offset pointer and span types get their size
// from the table's layout. typ is left untouched when Define fails.
func (t *Table) Define(typ *Type) error {
	if typ == nil || typ.Name == "" {
		return fmt.Errorf("type has no name")
	}
	if typ.IsOffset() {
		if err := typ.Elem.Sized(); err != nil {
			return fmt.Errorf("define %s: %w", typ.Name, err)
		}
	} else if typ.Size > MaxSize {
		return fmt.Errorf("define %s: %w", typ.Name, typ.Sized())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.types[typ.Name]; ok {
		return fmt.Errorf("type %q already defined", typ.Name)
	}
	switch typ.Kind {
	case KindOffsetPointer:
		typ.Size = uint64(t.layout.PointerWidth)
	case KindOffsetSpan:
		typ.Size = t.layout.SpanSize()
	}
	t.types[typ.Name] = typ
	return nil
}

// Lookup returns the named type, or parses name as an offset_ptr<T> or
// offset_span<T> expression.
func (t *Table) Lookup(name string) (*Type, error) {
	name = strings.TrimSpace(name)
	if typ, ok := t.defined(name); ok {
		return typ, nil
	}
	if strings.HasSuffix(name, ">") {
		return t.Parse(name)
	}
	return nil, &UnresolvedError{Name: name}
}

func (t *Table) defined(name string) (*Type, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	typ, ok := t.types[name]
	return typ, ok
}

// Parse turns a textual descriptor such as offset_span<offset_ptr<int32>>
// into a structured type. A namespace qualifier on the template name is
// ignored.
func (t *Table) Parse(expr string) (*Type, error) {
	expr = strings.TrimSpace(expr)
	open := strings.IndexByte(expr, '<')
	if open < 0 || !strings.HasSuffix(expr, ">") {
		if typ, ok := t.defined(expr); ok {
			return typ, nil
		}
		return nil, &UnresolvedError{Name: expr}
	}
	tmpl := expr[:open]
	if i := strings.LastIndex(tmpl, "::"); i >= 0 {
		tmpl = tmpl[i+2:]
	}
	kind, err := ParseKind(tmpl)
	if err != nil || !(kind == KindOffsetPointer || kind == KindOffsetSpan) {
		return nil, &UnresolvedError{Name: expr, Reason: fmt.Sprintf("unknown template %q", tmpl)}
	}
	elem, err := t.Lookup(expr[open+1 : len(expr)-1])
	if err != nil {
		return nil, err
	}
	return t.offsetType(kind, elem), nil
}

// PointerTo returns the offset_ptr<elem> type for this table's layout.
func (t *Table) PointerTo(elem *Type) *Type {
	return t.offsetType(KindOffsetPointer, elem)
}

// SpanOf returns the offset_span<elem> type for this table's layout.
func (t *Table) SpanOf(elem *Type) *Type {
	return t.offsetType(KindOffsetSpan, elem)
}

func (t *Table) offsetType(kind Kind, elem *Type) *Type {
	typ := &Type{Name: fmt.Sprintf("%s<%s>", kind, elem), Kind: kind, Elem: elem}
	if kind == KindOffsetPointer {
		typ.Size = uint64(t.layout.PointerWidth)
	} else {
		typ.Size = t.layout.SpanSize()
	}
	return typ
}

// Names returns the names of all defined types.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.types))
	for name := range t.types {
		names = append(names, name)
	}
	return names
}
