package fields

import (
	"fmt"

	"github.com/joseph-ayodele/cte-extractor/internal/common"
)

// Field is a named field with its lookup rule.
type Field struct {
	Name string
	Rule Rule
}

// Table is the static lookup-path table: the single source of truth for what each
// field means and where it lives. Declared order is the canonical column order.
// A Table is immutable after NewTable.
type Table struct {
	fields     []Field
	index      map[string]int
	namespaces map[string]string
}

// NewTable validates and builds a table. Duplicate names and malformed rules are
// configuration errors.
func NewTable(namespaces map[string]string, fields ...Field) (*Table, error) {
	t := &Table{
		fields:     make([]Field, 0, len(fields)),
		index:      make(map[string]int, len(fields)),
		namespaces: make(map[string]string, len(namespaces)),
	}
	for k, v := range namespaces {
		t.namespaces[k] = v
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, common.NewAppError(common.CodeConfig, "field with empty name", common.ErrConfig)
		}
		if _, dup := t.index[f.Name]; dup {
			return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("duplicate field %q", f.Name), common.ErrConfig)
		}
		if err := f.Rule.validate(); err != nil {
			return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("field %q", f.Name), fmt.Errorf("%w: %v", common.ErrConfig, err))
		}
		t.index[f.Name] = len(t.fields)
		t.fields = append(t.fields, f)
	}
	return t, nil
}

// MustNewTable is NewTable for static tables; it panics on error.
func MustNewTable(namespaces map[string]string, fields ...Field) *Table {
	t, err := NewTable(namespaces, fields...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the field specification for name.
func (t *Table) Lookup(name string) (Field, error) {
	i, ok := t.index[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: %q", common.ErrUnknownField, name)
	}
	return t.fields[i], nil
}

// Names lists every field name in declared order.
func (t *Table) Names() []string {
	out := make([]string, len(t.fields))
	for i, f := range t.fields {
		out[i] = f.Name
	}
	return out
}

// Fields returns a copy of the declared fields.
func (t *Table) Fields() []Field {
	return append([]Field(nil), t.fields...)
}

// Namespaces returns a copy of the prefix → URI binding shared by every path.
func (t *Table) Namespaces() map[string]string {
	out := make(map[string]string, len(t.namespaces))
	for k, v := range t.namespaces {
		out[k] = v
	}
	return out
}

// Validate rejects any name without a table entry.
func (t *Table) Validate(names []string) error {
	var unknown []string
	for _, n := range names {
		if _, ok := t.index[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %q", common.ErrUnknownField, unknown)
	}
	return nil
}

// Select validates names and returns them as a Selection in declared order.
// Duplicates collapse.
func (t *Table) Select(names []string) (Selection, error) {
	if err := t.Validate(names); err != nil {
		return Selection{}, err
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	sel := Selection{fields: make([]Field, 0, len(want))}
	for _, f := range t.fields {
		if _, ok := want[f.Name]; ok {
			sel.fields = append(sel.fields, f)
		}
	}
	return sel, nil
}

// SelectAll returns a Selection of every field.
func (t *Table) SelectAll() Selection {
	return Selection{fields: append([]Field(nil), t.fields...)}
}

// Selection is a validated, ordered set of enabled fields.
type Selection struct {
	fields []Field
}

// Names lists the enabled field names in declared order.
func (s Selection) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Fields lists the enabled fields in declared order.
func (s Selection) Fields() []Field {
	return s.fields
}

// Len returns the number of enabled fields.
func (s Selection) Len() int {
	return len(s.fields)
}

// Contains reports whether name is enabled.
func (s Selection) Contains(name string) bool {
	for _, f := range s.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
