package testing

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/ValentinKolb/dCol/lib/backend"
)

// Factory creates a fresh, empty backend for every test.
type Factory func(t *testing.T) backend.IBackend

// RunBackendTests runs the conformance suite for a backend implementation.
func RunBackendTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Ping", func(t *testing.T) {
			testPing(t, factory(t))
		})

		t.Run("Strings", func(t *testing.T) {
			testStrings(t, factory(t))
		})

		t.Run("Counters", func(t *testing.T) {
			testCounters(t, factory(t))
		})

		t.Run("ScanPrefix", func(t *testing.T) {
			testScanPrefix(t, factory(t))
		})

		t.Run("Hashes", func(t *testing.T) {
			testHashes(t, factory(t))
		})

		t.Run("ListPushPop", func(t *testing.T) {
			testListPushPop(t, factory(t))
		})

		t.Run("ListIndexing", func(t *testing.T) {
			testListIndexing(t, factory(t))
		})

		t.Run("ListRemove", func(t *testing.T) {
			testListRemove(t, factory(t))
		})

		t.Run("ListInsert", func(t *testing.T) {
			testListInsert(t, factory(t))
		})

		t.Run("WrongType", func(t *testing.T) {
			testWrongType(t, factory(t))
		})

		t.Run("BinarySafety", func(t *testing.T) {
			testBinarySafety(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func testContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func values(items ...string) [][]byte {
	result := make([][]byte, len(items))
	for i, item := range items {
		result[i] = []byte(item)
	}
	return result
}

func strs(items [][]byte) []string {
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = string(item)
	}
	return result
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isCode(err error, code backend.RetCode) bool {
	return errors.Is(err, backend.NewError(code, ""))
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPing(t *testing.T, b backend.IBackend) {
	defer b.Close()

	if err := b.Ping(testContext(t)); err != nil {
		t.Fatalf("Expected ping to succeed, got %v", err)
	}
}

func testStrings(t *testing.T, b backend.IBackend) {
	defer b.Close()
	ctx := testContext(t)

	if _, found, err := b.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Expected missing key to return found=false, got found=%t err=%v", found, err)
	}

	must(t, b.Set(ctx, "key", []byte("value1")))
	must(t, b.Set(ctx, "key", []byte("value2")))

	value, found, err := b.Get(ctx, "key")
	must(t, err)
	if !found || string(value) != "value2" {
		t.Errorf("Expected value2, got %q (found=%t)", value, found)
	}

	exists, err := b.Exists(ctx, "key")
	must(t, err)
	if !exists {
		t.Errorf("Expected key to exist")
	}

	must(t, b.Set(ctx, "other", []byte("x")))
	removed, err := b.Delete(ctx, "key", "other", "missing")
	must(t, err)
	if removed != 2 {
		t.Errorf("Expected 2 removed keys, got %d", removed)
	}

	exists, err = b.Exists(ctx, "key")
	must(t, err)
	if exists {
		t.Errorf("Expected key to be deleted")
	}

	removed, err = b.Delete(ctx)
	must(t, err)
	if removed != 0 {
		t.Errorf("Expected delete without keys to remove nothing, got %d", removed)
	}
}

func testCounters(t *testing.T, b backend.IBackend) {
	defer b.Close()
	ctx := testContext(t)

	n, err := b.Incr(ctx, "counter")
	must(t, err)
	if n != 1 {
		t.Errorf("Expected first increment to return 1, got %d", n)
	}

	n, err = b.Incr(ctx, "counter")
	must(t, err)
	if n != 2 {
		t.Errorf("Expected second increment to return 2, got %d", n)
	}

	for i := 0; i < 2; i++ {
		n, err = b.Decr(ctx, "counter")
		must(t, err)
	}
	if n != 0 {
		t.Errorf("Expected counter back at 0, got %d", n)
	}

	n, err = b.Decr(ctx, "fresh")
	must(t, err)
	if n != -1 {
		t.Errorf("Expected decrement of a missing key to return -1, got %d", n)
	}

	must(t, b.Set(ctx, "text", []byte("abc")))
	if _, err := b.Incr(ctx, "text"); !isCode(err, backend.RetCNotInteger) {
		t.Errorf("Expected RetCNotInteger, got %v", err)
	}
}

func testScanPrefix(t *testing.T, b backend.IBackend) {
	defer b.Close()
	ctx := testContext(t)

	prefix := "col[1]*:"
	for _, key := range []string{prefix + "a", prefix + "b", prefix + "c", "col[1]x:a", "other"} {
		must(t, b.Set(ctx, key, []byte("v")))
	}

	keys, err := b.ScanPrefix(ctx, prefix)
	must(t, err)
	sort.Strings(keys)

	expected := []string{prefix + "a", prefix + "b", prefix + "c"}
	if !equalStrings(keys, expected) {
		t.Errorf("Expected keys %v, got %v", expected, keys)
	}

	keys, err = b.ScanPrefix(ctx, "nothing-here:")
	must(t, err)
	if len(keys) != 0 {
		t.Errorf("Expected no keys, got %v", keys)
	}
}

func testHashes(t *testing.T, b backend.IBackend) {
	defer b.Close()
	ctx := testContext(t)

	must(t, b.HSet(ctx, "h", "f1", []byte("v1")))
	must(t, b.HSet(ctx, "h", "f2", []byte("v2")))
	must(t, b.HSet(ctx, "h", "f1", []byte("v1b")))

	value, found, err := b.HGet(ctx, "h", "f1")
	must(t, err)
	if !found || string(value) != "v1b" {
		t.Errorf("Expected v1b, got %q (found=%t)", value, found)
	}

	if _, found, err := b.HGet(ctx, "h", "nope"); err != nil || found {
		t.Errorf("Expected missing field, got found=%t err=%v", found, err)
	}
	if _, found, err := b.HGet(ctx, "no-hash", "f1"); err != nil || found {
		t.Errorf("Expected missing hash, got found=%t err=%v", found, err)
	}

	ok, err := b.HExists(ctx, "h", "f2")
	must(t, err)
	if !ok {
		t.Errorf("Expected field f2 to exist")
	}

	length, err := b.HLen(ctx, "h")
	must(t, err)
	if length != 2 {
		t.Errorf("Expected 2 fields, got %d", length)
	}

	fields, err := b.HKeys(ctx, "h")
	must(t, err)
	sort.Strings(fields)
	if !equalStrings(fields, []string{"f1", "f2"}) {
		t.Errorf("Unexpected fields %v", fields)
	}

	vals, err := b.HVals(ctx, "h")
	must(t, err)
	got := strs(vals)
	sort.Strings(got)
	if !equalStrings(got, []string{"v1b", "v2"}) {
		t.Errorf("Unexpected values %v", got)
	}

	all, err := b.HGetAll(ctx, "h")
	must(t, err)
	if len(all) != 2 || string(all["f2"]) != "v2" {
		t.Errorf("Unexpected pairs %v", all)
	}

	removed, err := b.HDel(ctx, "h", "f1", "f2", "f3")
	must(t, err)
	if removed != 2 {
		t.Errorf("Expected 2 removed fields, got %d", removed)
	}

	exists, err := b.Exists(ctx, "h")
	must(t, err)
	if exists {
		t.Errorf("Expected empty hash to be removed")
	}

	length, err = b.HLen(ctx, "h")
	must(t, err)
	if length != 0 {
		t.Errorf("Expected length 0 of missing hash, got %d", length)
	}
}

func testListPushPop(t *testing.T, b backend.IBackend) {
	defer b.Close()
	ctx := testContext(t)

	n, err := b.RPush(ctx, "l", values("c", "d")...)
	must(t, err)
	if n != 2 {
		t.Errorf("Expected length 2, got %d", n)
	}

	n, err = b.LPush(ctx, "l", values("b", "a")...)
	must(t, err)
	if n != 4 {
		t.Errorf("Expected length 4, got %d", n)
	}

	all, err := b.LRange(ctx, "l", 0, -1)
	must(t, err)
	if !equalStrings(strs(all), []string{"a", "b", "c", "d"}) {
		t.Errorf("Unexpected list %v", strs(all))
	}

	head, found, err := b.LPop(ctx, "l")
	must(t, err)
	if !found || string(head) != "a" {
		t.Errorf("Expected LPop to return a, got %q", head)
	}

	tail, found, err := b.RPop(ctx, "l")
	must(t, err)
	if !found || string(tail) != "d" {
		t.Errorf("Expected RPop to return d, got %q", tail)
	}

	for i := 0; i < 2; i++ {
		_, _, err = b.LPop(ctx, "l")
		must(t, err)
	}

	if _, found, err := b.LPop(ctx, "l"); err != nil || found {
		t.Errorf("Expected pop on empty list to return found=false, got found=%t err=%v", found, err)
	}

	exists, err := b.Exists(ctx, "l")
	must(t, err)
	if exists {
		t.Errorf("Expected empty list to be removed")
	}
}

func testListIndexing(t *testing.T, b backend.IBackend) {
	defer b.Close()
	ctx := testContext(t)

	_, err := b.RPush(ctx, "l", values("0", "1", "2", "3", "4")...)
	must(t, err)

	ranges := []struct {
		start, stop int64
		expected    []string
	}{
		{0, -1, []string{"0", "1", "2", "3", "4"}},
		{1, 3, []string{"1", "2", "3"}},
		{-2, -1, []string{"3", "4"}},
		{-100, 1, []string{"0", "1"}},
		{3, 100, []string{"3", "4"}},
		{4, 2, []string{}},
		{10, 20, []string{}},
	}
	for _, r := range ranges {
		got, err := b.LRange(ctx, "l", r.start, r.stop)
		must(t, err)
		if !equalStrings(strs(got), r.expected) {
			t.Errorf("LRange(%d, %d): expected %v, got %v", r.start, r.stop, r.expected, strs(got))
		}
	}

	value, found, err := b.LIndex(ctx, "l", -1)
	must(t, err)
	if !found || string(value) != "4" {
		t.Errorf("Expected LIndex(-1) = 4, got %q", value)
	}

	if _, found, err := b.LIndex(ctx, "l", 5); err != nil || found {
		t.Errorf("Expected LIndex(5) to be out of range, got found=%t err=%v", found, err)
	}

	must(t, b.LSet(ctx, "l", -2, []byte("x")))
	value, _, err = b.LIndex(ctx, "l", 3)
	must(t, err)
	if string(value) != "x" {
		t.Errorf("Expected LSet to overwrite index 3, got %q", value)
	}

	if err := b.LSet(ctx, "l", 5, []byte("y")); !isCode(err, backend.RetCOutOfRange) {
		t.Errorf("Expected RetCOutOfRange, got %v", err)
	}
	if err := b.LSet(ctx, "missing", 0, []byte("y")); !isCode(err, backend.RetCNoSuchKey) {
		t.Errorf("Expected RetCNoSuchKey, got %v", err)
	}

	length, err := b.LLen(ctx, "l")
	must(t, err)
	if length != 5 {
		t.Errorf("Expected length 5, got %d", length)
	}
}

func testListRemove(t *testing.T, b backend.IBackend) {
	defer b.Close()
	ctx := testContext(t)

	reset := func() {
		_, err := b.Delete(ctx, "l")
		must(t, err)
		_, err = b.RPush(ctx, "l", values("a", "b", "a", "c", "a")...)
		must(t, err)
	}

	cases := []struct {
		count    int64
		removed  int64
		expected []string
	}{
		{1, 1, []string{"b", "a", "c", "a"}},
		{-1, 1, []string{"a", "b", "a", "c"}},
		{2, 2, []string{"b", "c", "a"}},
		{0, 3, []string{"b", "c"}},
	}
	for _, c := range cases {
		reset()
		removed, err := b.LRem(ctx, "l", c.count, []byte("a"))
		must(t, err)
		if removed != c.removed {
			t.Errorf("LRem(%d): expected %d removed, got %d", c.count, c.removed, removed)
		}
		all, err := b.LRange(ctx, "l", 0, -1)
		must(t, err)
		if !equalStrings(strs(all), c.expected) {
			t.Errorf("LRem(%d): expected %v, got %v", c.count, c.expected, strs(all))
		}
	}

	removed, err := b.LRem(ctx, "missing", 0, []byte("a"))
	must(t, err)
	if removed != 0 {
		t.Errorf("Expected nothing removed from a missing list, got %d", removed)
	}
}

func testListInsert(t *testing.T, b backend.IBackend) {
	defer b.Close()
	ctx := testContext(t)

	n, err := b.LInsertBefore(ctx, "l", []byte("a"), []byte("x"))
	must(t, err)
	if n != 0 {
		t.Errorf("Expected 0 for a missing list, got %d", n)
	}

	_, err = b.RPush(ctx, "l", values("a", "b", "b")...)
	must(t, err)

	n, err = b.LInsertBefore(ctx, "l", []byte("b"), []byte("x"))
	must(t, err)
	if n != 4 {
		t.Errorf("Expected new length 4, got %d", n)
	}

	n, err = b.LInsertBefore(ctx, "l", []byte("zzz"), []byte("x"))
	must(t, err)
	if n != -1 {
		t.Errorf("Expected -1 for a missing pivot, got %d", n)
	}

	all, err := b.LRange(ctx, "l", 0, -1)
	must(t, err)
	if !equalStrings(strs(all), []string{"a", "x", "b", "b"}) {
		t.Errorf("Unexpected list %v", strs(all))
	}
}

func testWrongType(t *testing.T, b backend.IBackend) {
	defer b.Close()
	ctx := testContext(t)

	_, err := b.RPush(ctx, "list", []byte("a"))
	must(t, err)
	must(t, b.HSet(ctx, "hash", "f", []byte("v")))

	if _, _, err := b.Get(ctx, "list"); !isCode(err, backend.RetCWrongType) {
		t.Errorf("Get on a list: expected RetCWrongType, got %v", err)
	}
	if err := b.HSet(ctx, "list", "f", []byte("v")); !isCode(err, backend.RetCWrongType) {
		t.Errorf("HSet on a list: expected RetCWrongType, got %v", err)
	}
	if _, err := b.RPush(ctx, "hash", []byte("a")); !isCode(err, backend.RetCWrongType) {
		t.Errorf("RPush on a hash: expected RetCWrongType, got %v", err)
	}
	if _, err := b.Incr(ctx, "hash"); !isCode(err, backend.RetCWrongType) {
		t.Errorf("Incr on a hash: expected RetCWrongType, got %v", err)
	}

	// SET replaces values of any type
	must(t, b.Set(ctx, "list", []byte("now a string")))
	if _, _, err := b.Get(ctx, "list"); err != nil {
		t.Errorf("Expected Get to succeed after SET, got %v", err)
	}
}

func testBinarySafety(t *testing.T, b backend.IBackend) {
	defer b.Close()
	ctx := testContext(t)

	key := "bin\x00key"
	field := string([]byte{0xff, 0x00, 0x01})
	value := []byte{0x00, 0xfe, 0x00, 0x7f}

	must(t, b.Set(ctx, key, value))
	got, _, err := b.Get(ctx, key)
	must(t, err)
	if !bytes.Equal(got, value) {
		t.Errorf("Expected %v, got %v", value, got)
	}

	must(t, b.HSet(ctx, "h", field, value))
	fields, err := b.HKeys(ctx, "h")
	must(t, err)
	if len(fields) != 1 || fields[0] != field {
		t.Errorf("Expected binary field to round trip, got %q", fields)
	}

	_, err = b.RPush(ctx, "l", value, value)
	must(t, err)
	removed, err := b.LRem(ctx, "l", 1, value)
	must(t, err)
	if removed != 1 {
		t.Errorf("Expected binary value to match in LRem, got %d", removed)
	}
}
