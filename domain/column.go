package domain

import "sort"

// FallbackColumnName is where cards land when their own column is gone.
const FallbackColumnName = "Por hacer"

// Column represents a vertical lane on the board. Names are unique.
type Column struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
	CreatedBy string `json:"createdBy,omitempty"`
}

// ColumnPatch carries a partial column update. Nil fields are left untouched.
type ColumnPatch struct {
	Name  *string `json:"name,omitempty"`
	Order *int    `json:"order,omitempty"`
}

// DefaultColumns returns the well-known seed set for an empty board.
func DefaultColumns() []Column {
	return []Column{
		{Name: FallbackColumnName, Order: 0, CreatedBy: "System"},
		{Name: "En progreso", Order: 1, CreatedBy: "System"},
		{Name: "Hecho", Order: 2, CreatedBy: "System"},
	}
}

// SortColumns orders columns by their order field, ties broken by id.
func SortColumns(cols []Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Order != cols[j].Order {
			return cols[i].Order < cols[j].Order
		}
		return cols[i].ID < cols[j].ID
	})
}

// ColumnRef is a column reference as stored on a task: either a durable
// column id or a column name. Both forms occur on the wire and must be
// treated as equivalent.
type ColumnRef struct {
	value string
}

// NewColumnRef wraps a raw task column reference.
func NewColumnRef(v string) ColumnRef { return ColumnRef{value: v} }

// String returns the raw reference value.
func (r ColumnRef) String() string { return r.value }

// Resolve finds the referenced column in the given set, matching by id
// first and then by name. When the reference no longer resolves, the
// fallback column is returned if present. The boolean reports whether the
// reference itself matched; a fallback hit returns false so callers can
// tell a stale reference apart from a live one.
func (r ColumnRef) Resolve(cols []Column) (Column, bool) {
	if r.value != "" {
		for _, c := range cols {
			if c.ID == r.value {
				return c, true
			}
		}
		for _, c := range cols {
			if c.Name == r.value {
				return c, true
			}
		}
	}
	for _, c := range cols {
		if c.Name == FallbackColumnName {
			return c, false
		}
	}
	return Column{}, false
}
