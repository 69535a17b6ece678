package table

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-bake/engine/scheduler"
)

// Group is the set of rows sharing one key.
type Group[K comparable] struct {
	Key  K
	Rows []int
}

// Partition groups the rows of a key column. Groups appear in the order their key is first
// seen scanning rows ascending, and the rows inside each group are ascending.
//
// Parameters:
//   - keys: the key column
//
// Returns:
//   - []Group[K]: the groups
func Partition[K comparable](keys *Column[K]) []Group[K] {
	var groups []Group[K]
	slot := make(map[K]int)
	for row, k := range keys.data {
		i, ok := slot[k]
		if !ok {
			i = len(groups)
			slot[k] = i
			groups = append(groups, Group[K]{Key: k})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	return groups
}

// ForEachPartition runs fn once per group in parallel and waits for all of them.
// fn must only write rows in its own group.
//
// Parameters:
//   - s: the scheduler providing the workers
//   - groups: the groups from Partition
//   - fn: the per-group work
//
// Returns:
//   - error: all errors from fn joined, or nil
func ForEachPartition[K comparable](s scheduler.Scheduler, groups []Group[K], fn func(g Group[K]) error) error {
	errs := make([]error, len(groups))
	s.ParallelFor(len(groups), 1, func(start, end int) {
		for i := start; i < end; i++ {
			if err := fn(groups[i]); err != nil {
				errs[i] = fmt.Errorf("partition %v: %w", groups[i].Key, err)
			}
		}
	})
	return errors.Join(errs...)
}
