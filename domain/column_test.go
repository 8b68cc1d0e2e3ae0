package domain

import "testing"

func boardColumns() []Column {
	return []Column{
		{ID: "c1", Name: "Por hacer", Order: 0},
		{ID: "c2", Name: "En progreso", Order: 1},
		{ID: "c3", Name: "Hecho", Order: 2},
	}
}

func TestColumnRefResolveByID(t *testing.T) {
	col, ok := NewColumnRef("c2").Resolve(boardColumns())
	if !ok || col.Name != "En progreso" {
		t.Fatalf("expected live match on c2, got %+v ok=%v", col, ok)
	}
}

func TestColumnRefResolveByName(t *testing.T) {
	col, ok := NewColumnRef("Hecho").Resolve(boardColumns())
	if !ok || col.ID != "c3" {
		t.Fatalf("expected live match on Hecho, got %+v ok=%v", col, ok)
	}
}

func TestColumnRefResolveStaleFallsBack(t *testing.T) {
	// A reference to a deleted column lands on the fallback column, and the
	// caller can tell it was not a live match.
	col, ok := NewColumnRef("Archivado").Resolve(boardColumns())
	if ok {
		t.Fatal("stale reference must not report a live match")
	}
	if col.Name != FallbackColumnName {
		t.Fatalf("expected fallback column, got %+v", col)
	}
}

func TestColumnRefResolveNoFallback(t *testing.T) {
	cols := []Column{{ID: "c9", Name: "Otros", Order: 0}}
	col, ok := NewColumnRef("missing").Resolve(cols)
	if ok || col.ID != "" {
		t.Fatalf("expected zero column, got %+v ok=%v", col, ok)
	}
}

func TestSortColumnsTiesBrokenByID(t *testing.T) {
	cols := []Column{
		{ID: "b", Name: "B", Order: 1},
		{ID: "a", Name: "A", Order: 1},
		{ID: "c", Name: "C", Order: 0},
	}
	SortColumns(cols)
	if cols[0].ID != "c" || cols[1].ID != "a" || cols[2].ID != "b" {
		t.Fatalf("unexpected ordering: %+v", cols)
	}
}

func TestDefaultColumnsWellKnown(t *testing.T) {
	defaults := DefaultColumns()
	if len(defaults) != 3 {
		t.Fatalf("expected 3 defaults, got %d", len(defaults))
	}
	names := []string{"Por hacer", "En progreso", "Hecho"}
	for i, d := range defaults {
		if d.Name != names[i] || d.Order != i || d.CreatedBy != "System" {
			t.Errorf("default %d: %+v", i, d)
		}
	}
}
