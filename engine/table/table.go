package table

import (
	"errors"
	"fmt"
	"sync"
)

var (
	errColumnExists   = errors.New("column already exists")
	errColumnNotFound = errors.New("column not found")
	errColumnType     = errors.New("column has a different element type")
)

// RowID is a stable handle to a row. It survives removal of other rows, unlike the dense row index.
type RowID uint32

// column is the type-erased view of a Column used by the Table for structural changes.
type column interface {
	appendZero()
	swapRemove(row int)
}

// table is the implementation of the Table interface.
type table struct {
	mu *sync.RWMutex

	columns map[string]column
	order   []string

	ids    []RowID
	index  map[RowID]int
	nextID RowID
}

// Table is a structure-of-arrays store. Every column holds one element per row, and rows are
// kept dense: removing a row moves the last row into its slot.
//
// Structural changes (Insert, Remove, AddColumn) take the table lock. Element reads and writes
// through Column slices are not locked; callers writing disjoint rows may do so concurrently.
type Table interface {
	// Insert appends a row with the zero value in every column.
	//
	// Returns:
	//   - RowID: the stable id of the new row
	Insert() RowID

	// Remove deletes the row with the given id by swapping the last row into its place.
	//
	// Parameters:
	//   - id: the row id
	//
	// Returns:
	//   - bool: false if id is not present
	Remove(id RowID) bool

	// Row returns the current dense index of id.
	//
	// Parameters:
	//   - id: the row id
	//
	// Returns:
	//   - int: the dense row index
	//   - bool: false if id is not present
	Row(id RowID) (int, bool)

	// ID returns the stable id of a dense row.
	//
	// Parameters:
	//   - row: the dense row index
	//
	// Returns:
	//   - RowID: the id of the row
	ID(row int) RowID

	// IDs returns a copy of all row ids in dense order.
	//
	// Returns:
	//   - []RowID: the ids
	IDs() []RowID

	// Len returns the number of rows.
	//
	// Returns:
	//   - int: the row count
	Len() int

	// ColumnNames returns the column names in the order they were added.
	//
	// Returns:
	//   - []string: the column names
	ColumnNames() []string

	lookup(name string) (column, bool)
	attach(name string, c column) error
}

var _ Table = &table{}

// NewTable creates an empty Table.
//
// Returns:
//   - Table: the table
func NewTable() Table {
	return &table{
		mu:      &sync.RWMutex{},
		columns: make(map[string]column),
		index:   make(map[RowID]int),
	}
}

func (t *table) Insert() RowID {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.index[id] = len(t.ids)
	t.ids = append(t.ids, id)
	for _, name := range t.order {
		t.columns[name].appendZero()
	}
	return id
}

func (t *table) Remove(id RowID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.index[id]
	if !ok {
		return false
	}
	last := len(t.ids) - 1
	for _, name := range t.order {
		t.columns[name].swapRemove(row)
	}
	moved := t.ids[last]
	t.ids[row] = moved
	t.index[moved] = row
	t.ids = t.ids[:last]
	delete(t.index, id)
	return true
}

func (t *table) Row(id RowID) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.index[id]
	return row, ok
}

func (t *table) ID(row int) RowID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ids[row]
}

func (t *table) IDs() []RowID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RowID, len(t.ids))
	copy(out, t.ids)
	return out
}

func (t *table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

func (t *table) ColumnNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func (t *table) lookup(name string) (column, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.columns[name]
	return c, ok
}

func (t *table) attach(name string, c column) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.columns[name]; exists {
		return fmt.Errorf("%w: %s", errColumnExists, name)
	}
	for range t.ids {
		c.appendZero()
	}
	t.columns[name] = c
	t.order = append(t.order, name)
	return nil
}
