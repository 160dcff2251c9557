package entity

import (
	"github.com/joseph-ayodele/cte-extractor/constants"
)

// Table is the result table: one row per successfully parsed document, columns in
// lookup-table declared order.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// NewTable creates an empty table with the given columns.
func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...), Rows: []Record{}}
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column name once.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Append adds a row.
func (t *Table) Append(r Record) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// DebugTable flattens per-document traces into one row per document with three
// columns per field: value, success flag and path.
type DebugTable struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// DebugColumns lists the flattened column names for fields: document column, then
// every __valor, then every __ok, then every __xpath.
func DebugColumns(fields []string) []string {
	cols := make([]string, 0, 1+3*len(fields))
	cols = append(cols, constants.DebugDocumentColumn)
	for _, f := range fields {
		cols = append(cols, f+constants.DebugValueSuffix)
	}
	for _, f := range fields {
		cols = append(cols, f+constants.DebugOKSuffix)
	}
	for _, f := range fields {
		cols = append(cols, f+constants.DebugPathSuffix)
	}
	return cols
}

// NewDebugTable builds the debug table for fields from the successful outcomes.
// A nil path is stored as nil so exporters can leave the cell empty.
func NewDebugTable(fields []string, outcomes []Outcome) *DebugTable {
	dt := &DebugTable{Columns: DebugColumns(fields), Rows: []map[string]any{}}
	for _, o := range outcomes {
		if o.Failed() || o.Trace == nil {
			continue
		}
		row := make(map[string]any, len(dt.Columns))
		row[constants.DebugDocumentColumn] = o.Name
		for _, f := range fields {
			e, ok := o.Trace[f]
			if !ok {
				continue
			}
			row[f+constants.DebugValueSuffix] = e.Value
			row[f+constants.DebugOKSuffix] = e.OK
			if e.Path != nil {
				row[f+constants.DebugPathSuffix] = *e.Path
			} else {
				row[f+constants.DebugPathSuffix] = nil
			}
		}
		dt.Rows = append(dt.Rows, row)
	}
	return dt
}
