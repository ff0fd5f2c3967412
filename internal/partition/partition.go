// Package partition slices an input set into contiguous per-shard ranges so
// parallel job instances can share one input table without coordination.
package partition

import (
	"fmt"

	"collector/internal/config"
)

// Range returns the half-open interval [start, end) of the input owned by
// shard index out of count shards. Every shard computes its own range from
// the same three integers, so ranges are disjoint and cover the whole input.
// The first total%count shards receive one extra item.
func Range(total, index, count int) (int, int, error) {
	if count <= 0 {
		return 0, 0, fmt.Errorf("%w: shard count must be positive, got %d", config.ErrInvalidConfig, count)
	}
	if index < 0 || index >= count {
		return 0, 0, fmt.Errorf("%w: shard index %d out of range for count %d", config.ErrInvalidConfig, index, count)
	}
	if total < 0 {
		return 0, 0, fmt.Errorf("%w: negative input size %d", config.ErrInvalidConfig, total)
	}

	base := total / count
	rem := total % count

	start := index*base + min(index, rem)
	end := start + base
	if index < rem {
		end++
	}
	return start, end, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
