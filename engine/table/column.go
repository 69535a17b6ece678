package table

import "fmt"

// Column is a typed column of a Table.
type Column[T any] struct {
	name string
	data []T
}

// AddColumn adds a column of element type T. Existing rows get the zero value.
//
// Parameters:
//   - t: the table
//   - name: the column name, unique within t
//
// Returns:
//   - *Column[T]: the new column
//   - error: if a column with that name already exists
func AddColumn[T any](t Table, name string) (*Column[T], error) {
	c := &Column[T]{name: name}
	if err := t.attach(name, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetColumn returns an existing column of element type T.
//
// Parameters:
//   - t: the table
//   - name: the column name
//
// Returns:
//   - *Column[T]: the column
//   - error: if the column does not exist or holds another type
func GetColumn[T any](t Table, name string) (*Column[T], error) {
	c, ok := t.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errColumnNotFound, name)
	}
	typed, ok := c.(*Column[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s", errColumnType, name)
	}
	return typed, nil
}

// Name returns the column name.
func (c *Column[T]) Name() string {
	return c.name
}

// Slice returns the live backing slice, indexed by dense row.
// It is invalidated by the next Insert or Remove on the table.
func (c *Column[T]) Slice() []T {
	return c.data
}

func (c *Column[T]) Get(row int) T {
	return c.data[row]
}

func (c *Column[T]) Set(row int, v T) {
	c.data[row] = v
}

func (c *Column[T]) appendZero() {
	var zero T
	c.data = append(c.data, zero)
}

func (c *Column[T]) swapRemove(row int) {
	last := len(c.data) - 1
	c.data[row] = c.data[last]
	var zero T
	c.data[last] = zero
	c.data = c.data[:last]
}
