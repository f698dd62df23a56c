package models

// Column is one named column of raw cells.
type Column struct {
	Name   string   `json:"name" validate:"required"`
	Values []string `json:"values" validate:"required,min=1"`
}

// Table is parsed tabular input. Column order is significant: it breaks ties
// when locating the date column.
type Table struct {
	Columns []Column `json:"columns" validate:"required,min=1,dive"`
}

// Column returns the named column, or false.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Rows returns the number of rows, taken as the longest column.
func (t Table) Rows() int {
	n := 0
	for _, c := range t.Columns {
		if len(c.Values) > n {
			n = len(c.Values)
		}
	}
	return n
}
