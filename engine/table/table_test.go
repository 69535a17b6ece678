package table

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-bake/engine/scheduler"
)

func TestInsertFillsColumns(t *testing.T) {
	tbl := NewTable()
	a, err := AddColumn[int](tbl, "a")
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	tbl.Insert()
	tbl.Insert()

	// A late column is backfilled with zero values.
	b, err := AddColumn[string](tbl, "b")
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	tbl.Insert()

	if got := len(a.Slice()); got != 3 {
		t.Errorf("expected 3 elements in a, got %d", got)
	}
	if got := len(b.Slice()); got != 3 {
		t.Errorf("expected 3 elements in b, got %d", got)
	}
	if names := tbl.ColumnNames(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("expected [a b], got %v", names)
	}
}

func TestRemoveKeepsIDsStable(t *testing.T) {
	tbl := NewTable()
	vals, _ := AddColumn[int](tbl, "v")

	ids := make([]RowID, 5)
	for i := range ids {
		ids[i] = tbl.Insert()
		row, _ := tbl.Row(ids[i])
		vals.Set(row, i*10)
	}

	if !tbl.Remove(ids[1]) {
		t.Fatal("expected Remove to succeed")
	}
	if tbl.Remove(ids[1]) {
		t.Error("expected second Remove to fail")
	}
	if tbl.Len() != 4 {
		t.Errorf("expected 4 rows, got %d", tbl.Len())
	}
	if _, ok := tbl.Row(ids[1]); ok {
		t.Error("removed id still resolves")
	}

	for i, id := range ids {
		if i == 1 {
			continue
		}
		row, ok := tbl.Row(id)
		if !ok {
			t.Fatalf("id %d lost", id)
		}
		if got := vals.Get(row); got != i*10 {
			t.Errorf("id %d: expected %d, got %d", id, i*10, got)
		}
		if tbl.ID(row) != id {
			t.Errorf("row %d: expected id %d, got %d", row, id, tbl.ID(row))
		}
	}

	// Ids are never reused.
	if next := tbl.Insert(); next != RowID(len(ids)) {
		t.Errorf("expected fresh id %d, got %d", len(ids), next)
	}
}

func TestRemoveLastRow(t *testing.T) {
	tbl := NewTable()
	vals, _ := AddColumn[float32](tbl, "v")
	id := tbl.Insert()
	if !tbl.Remove(id) {
		t.Fatal("expected Remove to succeed")
	}
	if tbl.Len() != 0 || len(vals.Slice()) != 0 {
		t.Errorf("expected empty table, got %d rows", tbl.Len())
	}
}

func TestColumnLookupErrors(t *testing.T) {
	tbl := NewTable()
	if _, err := AddColumn[int](tbl, "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := AddColumn[int](tbl, "x"); !errors.Is(err, errColumnExists) {
		t.Errorf("expected errColumnExists, got %v", err)
	}
	if _, err := GetColumn[int](tbl, "y"); !errors.Is(err, errColumnNotFound) {
		t.Errorf("expected errColumnNotFound, got %v", err)
	}
	if _, err := GetColumn[string](tbl, "x"); !errors.Is(err, errColumnType) {
		t.Errorf("expected errColumnType, got %v", err)
	}
	if c, err := GetColumn[int](tbl, "x"); err != nil || c.Name() != "x" {
		t.Errorf("expected column x, got %v, %v", c, err)
	}
}

func TestPartitionStable(t *testing.T) {
	tbl := NewTable()
	keys, _ := AddColumn[string](tbl, "set")
	for _, k := range []string{"b", "a", "b", "c", "a", "b"} {
		row, _ := tbl.Row(tbl.Insert())
		keys.Set(row, k)
	}

	groups := Partition(keys)
	want := []Group[string]{
		{Key: "b", Rows: []int{0, 2, 5}},
		{Key: "a", Rows: []int{1, 4}},
		{Key: "c", Rows: []int{3}},
	}
	if len(groups) != len(want) {
		t.Fatalf("expected %d groups, got %d", len(want), len(groups))
	}
	for i := range want {
		if groups[i].Key != want[i].Key {
			t.Errorf("group %d: expected key %q, got %q", i, want[i].Key, groups[i].Key)
		}
		if len(groups[i].Rows) != len(want[i].Rows) {
			t.Fatalf("group %d: expected rows %v, got %v", i, want[i].Rows, groups[i].Rows)
		}
		for j := range want[i].Rows {
			if groups[i].Rows[j] != want[i].Rows[j] {
				t.Errorf("group %d: expected rows %v, got %v", i, want[i].Rows, groups[i].Rows)
			}
		}
	}

	again := Partition(keys)
	for i := range groups {
		if again[i].Key != groups[i].Key {
			t.Errorf("partition order changed between calls")
		}
	}
}

func TestForEachPartition(t *testing.T) {
	tbl := NewTable()
	keys, _ := AddColumn[int](tbl, "k")
	out, _ := AddColumn[int](tbl, "out")
	for i := range 100 {
		row, _ := tbl.Row(tbl.Insert())
		keys.Set(row, i%7)
	}

	s := scheduler.NewScheduler(scheduler.WithWorkers(4))
	var calls atomic.Int32
	err := ForEachPartition(s, Partition(keys), func(g Group[int]) error {
		calls.Add(1)
		for _, r := range g.Rows {
			out.Set(r, g.Key+1)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachPartition: %v", err)
	}
	if calls.Load() != 7 {
		t.Errorf("expected 7 calls, got %d", calls.Load())
	}
	for r, v := range out.Slice() {
		if v != keys.Get(r)+1 {
			t.Errorf("row %d: expected %d, got %d", r, keys.Get(r)+1, v)
		}
	}
}

func TestForEachPartitionJoinsErrors(t *testing.T) {
	tbl := NewTable()
	keys, _ := AddColumn[int](tbl, "k")
	for i := range 4 {
		row, _ := tbl.Row(tbl.Insert())
		keys.Set(row, i)
	}
	bad := errors.New("bad")
	err := ForEachPartition(scheduler.NewScheduler(scheduler.WithWorkers(2)), Partition(keys), func(g Group[int]) error {
		if g.Key%2 == 1 {
			return bad
		}
		return nil
	})
	if !errors.Is(err, bad) {
		t.Errorf("expected joined error wrapping bad, got %v", err)
	}
}
