package collections

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestNormIndex(t *testing.T) {
	tests := []struct {
		index, length int
		want          int
		wantErr       bool
	}{
		{0, 3, 0, false},
		{2, 3, 2, false},
		{-1, 3, 2, false},
		{-3, 3, 0, false},
		{3, 3, 0, true},
		{-4, 3, 0, true},
		{0, 0, 0, true},
	}
	for _, tt := range tests {
		got, err := normIndex(tt.index, tt.length)
		if tt.wantErr {
			if !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("normIndex(%d, %d): expected ErrIndexOutOfRange, got %v", tt.index, tt.length, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("normIndex(%d, %d) = %d, %v; want %d", tt.index, tt.length, got, err, tt.want)
		}
	}
}

func TestClampInsert(t *testing.T) {
	tests := []struct{ index, length, want int }{
		{0, 3, 0},
		{1, 3, 1},
		{3, 3, 3},
		{10, 3, 3},
		{-1, 3, 2},
		{-3, 3, 0},
		{-10, 3, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := clampInsert(tt.index, tt.length); got != tt.want {
			t.Errorf("clampInsert(%d, %d) = %d, want %d", tt.index, tt.length, got, tt.want)
		}
	}
}

func TestSliceIndices(t *testing.T) {
	tests := []struct {
		name              string
		start, stop, step int
		length            int
		want              []int
	}{
		{"all", Omit, Omit, Omit, 4, []int{0, 1, 2, 3}},
		{"reversed", Omit, Omit, -1, 4, []int{3, 2, 1, 0}},
		{"range", 1, 3, Omit, 5, []int{1, 2}},
		{"negative stop", 1, -1, 1, 5, []int{1, 2, 3}},
		{"stepped", 0, Omit, 2, 5, []int{0, 2, 4}},
		{"negative step bounds", 3, 0, -1, 5, []int{3, 2, 1}},
		{"negative step to start", 3, Omit, -2, 5, []int{3, 1}},
		{"clamped", -100, 100, 1, 3, []int{0, 1, 2}},
		{"clamped negative step", 100, -100, -1, 3, []int{2, 1, 0}},
		{"empty forward", 3, 1, 1, 5, nil},
		{"empty backward", 1, 3, -1, 5, nil},
		{"empty sequence", Omit, Omit, Omit, 0, nil},
		{"stop -1 with negative step", Omit, -1, -1, 3, nil},
		{"huge step", 1, 10, math.MaxInt, 20, []int{1}},
		{"huge step from negative start", -1, Omit, math.MaxInt, 5, []int{4}},
		{"huge negative step", 10, 1, math.MinInt + 1, 20, []int{10}},
		{"huge negative step whole", Omit, Omit, math.MinInt + 1, 3, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sliceIndices(tt.start, tt.stop, tt.step, tt.length)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSliceZeroStep(t *testing.T) {
	if _, err := sliceIndices(0, 3, 0, 5); !errors.Is(err, ErrInvalidSlice) {
		t.Errorf("Expected ErrInvalidSlice, got %v", err)
	}
}
