package models

import "sort"

// SchemaMap maps table name to its column names in introspection order.
// It is rebuilt on every request and never cached.
type SchemaMap map[string][]string

// TableNames returns the table names sorted alphabetically.
func (s SchemaMap) TableNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ColumnCount returns the total number of columns across all tables.
func (s SchemaMap) ColumnCount() int {
	total := 0
	for _, cols := range s {
		total += len(cols)
	}
	return total
}
