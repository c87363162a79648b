package core

import (
	"math"
	"math/rand/v2"

	"github.com/huangsam/ratingfit/core/learn"
	"github.com/huangsam/ratingfit/schema"
)

const partitionOp = "partition"

// NewSeededRand builds the generator used for shuffling from a single seed.
func NewSeededRand(seed uint64) *rand.Rand {
	return learn.NewSeededRand(seed)
}

// RandomSeed draws a fresh seed in [1, MaxInt64], so that the reported seed
// can be passed back through the --seed flag and stored in a BIGINT column.
func RandomSeed() uint64 {
	return uint64(rand.Int64N(math.MaxInt64)) + 1
}

// Partition shuffles a copy of the rows and splits them into groupCount
// contiguous groups whose sizes differ by at most one. Earlier groups take
// the extra rows. A nil rng uses a randomly seeded generator.
func Partition(table schema.AnalysisTable, groupCount int, rng *rand.Rand) ([]schema.Group, error) {
	n := table.Len()
	if groupCount <= 0 {
		return nil, schema.NewError(schema.InvalidArgument, partitionOp, "group count must be positive, got %d", groupCount)
	}
	if groupCount > n {
		return nil, schema.NewError(schema.InvalidArgument, partitionOp, "group count %d exceeds %d rows", groupCount, n)
	}
	if rng == nil {
		rng = NewSeededRand(RandomSeed())
	}

	rows := make([]schema.AnalysisRow, n)
	copy(rows, table.Rows)
	rng.Shuffle(n, func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})

	size, extra := n/groupCount, n%groupCount
	groups := make([]schema.Group, groupCount)
	start := 0
	for i := range groupCount {
		end := start + size
		if i < extra {
			end++
		}
		groups[i] = schema.Group{Index: i, Rows: rows[start:end:end]}
		start = end
	}
	return groups, nil
}
