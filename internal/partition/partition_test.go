package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeCoversInputExactly(t *testing.T) {
	for _, total := range []int{0, 1, 5, 7, 100, 801} {
		for _, count := range []int{1, 2, 3, 5, 10} {
			covered := 0
			prevEnd := 0
			for i := 0; i < count; i++ {
				start, end, err := Range(total, i, count)
				require.NoError(t, err)
				assert.Equal(t, prevEnd, start, "shards must be contiguous (total=%d count=%d i=%d)", total, count, i)
				assert.GreaterOrEqual(t, end, start)
				covered += end - start
				prevEnd = end
			}
			assert.Equal(t, total, covered, "union must equal input (total=%d count=%d)", total, count)
			assert.Equal(t, total, prevEnd)
		}
	}
}

func TestRangeBalancesWithinOne(t *testing.T) {
	total, count := 10, 3
	sizes := make([]int, count)
	for i := 0; i < count; i++ {
		start, end, err := Range(total, i, count)
		require.NoError(t, err)
		sizes[i] = end - start
	}
	assert.Equal(t, []int{4, 3, 3}, sizes)
}

func TestRangeMoreShardsThanItems(t *testing.T) {
	start, end, err := Range(2, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, start, end, "surplus shards receive empty ranges")
}

func TestRangeRejectsBadShardConfig(t *testing.T) {
	_, _, err := Range(10, 0, 0)
	assert.Error(t, err)

	_, _, err = Range(10, 3, 3)
	assert.Error(t, err)

	_, _, err = Range(10, -1, 3)
	assert.Error(t, err)
}
