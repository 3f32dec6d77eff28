package collections

import (
	"reflect"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// equalOpts treat nil and empty slices and maps as equal (gob decodes an empty
// container as nil) and compare unexported struct fields like reflect.DeepEqual.
var equalOpts = []gocmp.Option{
	cmpopts.EquateEmpty(),
	gocmp.Exporter(func(reflect.Type) bool { return true }),
}

// equalValues reports whether two decoded values are equal.
func equalValues[V any](a, b V) bool {
	return gocmp.Equal(a, b, equalOpts...)
}
