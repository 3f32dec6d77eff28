package collections

import (
	"fmt"
	"math"
)

// Omit marks an absent slice bound, like an empty bound in seq[:5] or seq[::2].
const Omit = math.MinInt

// normIndex resolves a possibly negative index against length.
func normIndex(index, length int) (int, error) {
	i := index
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, length)
	}
	return i, nil
}

// clampInsert resolves an insert position. Positions past either end are clamped.
func clampInsert(index, length int) int {
	if index < 0 {
		index += length
		if index < 0 {
			return 0
		}
	}
	if index > length {
		return length
	}
	return index
}

// sliceBounds resolves start, stop and step against length. The result can be fed
// into a loop "for i := start; step > 0 && i < stop || step < 0 && i > stop; i += step".
func sliceBounds(start, stop, step, length int) (int, int, int, error) {
	if step == Omit {
		step = 1
	}
	if step == 0 {
		return 0, 0, 0, ErrInvalidSlice
	}

	lower, upper := 0, length
	if step < 0 {
		lower, upper = -1, length-1
	}

	adjust := func(v, def int) int {
		if v == Omit {
			return def
		}
		if v < 0 {
			v += length
			if v < lower {
				return lower
			}
			return v
		}
		if v > upper {
			return upper
		}
		return v
	}

	if step > 0 {
		return adjust(start, lower), adjust(stop, upper), step, nil
	}
	return adjust(start, upper), adjust(stop, lower), step, nil
}

// sliceIndices returns the positions selected by seq[start:stop:step] in selection order.
func sliceIndices(start, stop, step, length int) ([]int, error) {
	start, stop, step, err := sliceBounds(start, stop, step, length)
	if err != nil {
		return nil, err
	}

	// count first, start + k*step never passes stop so it cannot overflow
	n := 0
	if step > 0 && start < stop {
		n = (stop-start-1)/step + 1
	} else if step < 0 && stop < start {
		n = (start-stop-1)/(-step) + 1
	}

	indices := make([]int, n)
	for k := range indices {
		indices[k] = start + k*step
	}
	return indices, nil
}
