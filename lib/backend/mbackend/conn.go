package mbackend

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/ValentinKolb/dCol/lib/backend"
)

// connImpl is a single connection to a Server.
type connImpl struct {
	server *Server
	closed atomic.Bool
}

// check fails if the context is done, the connection was closed or the server is down.
func (c *connImpl) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return backend.NewError(backend.RetCConnection, "connection is closed")
	}
	if c.server.down.Load() {
		return backend.NewError(backend.RetCConnection, "connection reset by peer")
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (c *connImpl) Ping(ctx context.Context) error {
	return c.check(ctx)
}

func (c *connImpl) Close() error {
	c.closed.Store(true)
	return nil
}

// --------------------------------------------------------------------------
// Strings
// --------------------------------------------------------------------------

func (c *connImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := c.check(ctx); err != nil {
		return nil, false, err
	}
	e, ok, err := c.server.load(key, kindString)
	if err != nil || !ok {
		return nil, false, err
	}
	return copyBytes(e.str), true, nil
}

func (c *connImpl) Set(ctx context.Context, key string, value []byte) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	return c.server.update(key, func(_ entry, _ bool) (entry, bool, error) {
		return entry{kind: kindString, str: copyBytes(value)}, true, nil
	})
}

func (c *connImpl) Delete(ctx context.Context, keys ...string) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	var removed int64
	for _, key := range keys {
		if _, ok := c.server.data.LoadAndDelete(key); ok {
			removed++
		}
	}
	return removed, nil
}

func (c *connImpl) Exists(ctx context.Context, key string) (bool, error) {
	if err := c.check(ctx); err != nil {
		return false, err
	}
	_, ok := c.server.data.Load(key)
	return ok, nil
}

func (c *connImpl) Incr(ctx context.Context, key string) (int64, error) {
	return c.incrBy(ctx, key, 1)
}

func (c *connImpl) Decr(ctx context.Context, key string) (int64, error) {
	return c.incrBy(ctx, key, -1)
}

func (c *connImpl) incrBy(ctx context.Context, key string, delta int64) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	var result int64
	err := c.server.update(key, func(old entry, loaded bool) (entry, bool, error) {
		var current int64
		if loaded {
			if old.kind != kindString {
				return entry{}, false, wrongType()
			}
			n, err := strconv.ParseInt(string(old.str), 10, 64)
			if err != nil {
				return entry{}, false, backend.NewError(backend.RetCNotInteger, "ERR value is not an integer or out of range")
			}
			current = n
		}
		result = current + delta
		return entry{kind: kindString, str: []byte(strconv.FormatInt(result, 10))}, true, nil
	})
	return result, err
}

func (c *connImpl) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	var keys []string
	c.server.data.Range(func(key string, _ entry) bool {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	return keys, nil
}

// --------------------------------------------------------------------------
// Hashes
// --------------------------------------------------------------------------

func (c *connImpl) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	if err := c.check(ctx); err != nil {
		return nil, false, err
	}
	e, ok, err := c.server.load(key, kindHash)
	if err != nil || !ok {
		return nil, false, err
	}
	value, ok := e.hash[field]
	if !ok {
		return nil, false, nil
	}
	return copyBytes(value), true, nil
}

func (c *connImpl) HSet(ctx context.Context, key, field string, value []byte) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	return c.server.update(key, func(old entry, loaded bool) (entry, bool, error) {
		if loaded && old.kind != kindHash {
			return entry{}, false, wrongType()
		}
		hash := make(map[string][]byte, len(old.hash)+1)
		for f, v := range old.hash {
			hash[f] = v
		}
		hash[field] = copyBytes(value)
		return entry{kind: kindHash, hash: hash}, true, nil
	})
}

func (c *connImpl) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	var removed int64
	err := c.server.update(key, func(old entry, loaded bool) (entry, bool, error) {
		if !loaded {
			return entry{}, false, nil
		}
		if old.kind != kindHash {
			return entry{}, false, wrongType()
		}
		hash := make(map[string][]byte, len(old.hash))
		for f, v := range old.hash {
			hash[f] = v
		}
		for _, f := range fields {
			if _, ok := hash[f]; ok {
				delete(hash, f)
				removed++
			}
		}
		return entry{kind: kindHash, hash: hash}, len(hash) > 0, nil
	})
	return removed, err
}

func (c *connImpl) HExists(ctx context.Context, key, field string) (bool, error) {
	if err := c.check(ctx); err != nil {
		return false, err
	}
	e, ok, err := c.server.load(key, kindHash)
	if err != nil || !ok {
		return false, err
	}
	_, ok = e.hash[field]
	return ok, nil
}

func (c *connImpl) HKeys(ctx context.Context, key string) ([]string, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	e, _, err := c.server.load(key, kindHash)
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(e.hash))
	for f := range e.hash {
		fields = append(fields, f)
	}
	return fields, nil
}

func (c *connImpl) HVals(ctx context.Context, key string) ([][]byte, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	e, _, err := c.server.load(key, kindHash)
	if err != nil {
		return nil, err
	}
	values := make([][]byte, 0, len(e.hash))
	for _, v := range e.hash {
		values = append(values, copyBytes(v))
	}
	return values, nil
}

func (c *connImpl) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	e, _, err := c.server.load(key, kindHash)
	if err != nil {
		return nil, err
	}
	pairs := make(map[string][]byte, len(e.hash))
	for f, v := range e.hash {
		pairs[f] = copyBytes(v)
	}
	return pairs, nil
}

func (c *connImpl) HLen(ctx context.Context, key string) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	e, _, err := c.server.load(key, kindHash)
	return int64(len(e.hash)), err
}

// --------------------------------------------------------------------------
// Lists
// --------------------------------------------------------------------------

func (c *connImpl) LPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	return c.push(ctx, key, values, true)
}

func (c *connImpl) RPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	return c.push(ctx, key, values, false)
}

func (c *connImpl) push(ctx context.Context, key string, values [][]byte, head bool) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	var length int64
	err := c.server.update(key, func(old entry, loaded bool) (entry, bool, error) {
		if loaded && old.kind != kindList {
			return entry{}, false, wrongType()
		}
		list := make([][]byte, 0, len(old.list)+len(values))
		if head {
			// LPUSH inserts the values one after another at the head
			for i := len(values) - 1; i >= 0; i-- {
				list = append(list, copyBytes(values[i]))
			}
			list = append(list, old.list...)
		} else {
			list = append(list, old.list...)
			for _, v := range values {
				list = append(list, copyBytes(v))
			}
		}
		length = int64(len(list))
		return entry{kind: kindList, list: list}, len(list) > 0, nil
	})
	return length, err
}

func (c *connImpl) LPop(ctx context.Context, key string) ([]byte, bool, error) {
	return c.pop(ctx, key, true)
}

func (c *connImpl) RPop(ctx context.Context, key string) ([]byte, bool, error) {
	return c.pop(ctx, key, false)
}

func (c *connImpl) pop(ctx context.Context, key string, head bool) ([]byte, bool, error) {
	if err := c.check(ctx); err != nil {
		return nil, false, err
	}
	var (
		value []byte
		found bool
	)
	err := c.server.update(key, func(old entry, loaded bool) (entry, bool, error) {
		if !loaded {
			return entry{}, false, nil
		}
		if old.kind != kindList {
			return entry{}, false, wrongType()
		}
		found = true
		var rest [][]byte
		if head {
			value, rest = old.list[0], old.list[1:]
		} else {
			value, rest = old.list[len(old.list)-1], old.list[:len(old.list)-1]
		}
		list := make([][]byte, len(rest))
		copy(list, rest)
		return entry{kind: kindList, list: list}, len(list) > 0, nil
	})
	if err != nil {
		return nil, false, err
	}
	return copyBytes(value), found, nil
}

func (c *connImpl) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	e, _, err := c.server.load(key, kindList)
	if err != nil {
		return nil, err
	}
	from, to, ok := clampRange(int64(len(e.list)), start, stop)
	if !ok {
		return [][]byte{}, nil
	}
	values := make([][]byte, 0, to-from+1)
	for _, v := range e.list[from : to+1] {
		values = append(values, copyBytes(v))
	}
	return values, nil
}

func (c *connImpl) LLen(ctx context.Context, key string) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	e, _, err := c.server.load(key, kindList)
	return int64(len(e.list)), err
}

func (c *connImpl) LIndex(ctx context.Context, key string, index int64) ([]byte, bool, error) {
	if err := c.check(ctx); err != nil {
		return nil, false, err
	}
	e, _, err := c.server.load(key, kindList)
	if err != nil {
		return nil, false, err
	}
	i, ok := normIndex(int64(len(e.list)), index)
	if !ok {
		return nil, false, nil
	}
	return copyBytes(e.list[i]), true, nil
}

func (c *connImpl) LSet(ctx context.Context, key string, index int64, value []byte) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	return c.server.update(key, func(old entry, loaded bool) (entry, bool, error) {
		if !loaded {
			return entry{}, false, backend.NewError(backend.RetCNoSuchKey, "ERR no such key")
		}
		if old.kind != kindList {
			return entry{}, false, wrongType()
		}
		i, ok := normIndex(int64(len(old.list)), index)
		if !ok {
			return entry{}, false, backend.NewError(backend.RetCOutOfRange, "ERR index out of range")
		}
		list := make([][]byte, len(old.list))
		copy(list, old.list)
		list[i] = copyBytes(value)
		return entry{kind: kindList, list: list}, true, nil
	})
}

func (c *connImpl) LRem(ctx context.Context, key string, count int64, value []byte) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	var removed int64
	err := c.server.update(key, func(old entry, loaded bool) (entry, bool, error) {
		if !loaded {
			return entry{}, false, nil
		}
		if old.kind != kindList {
			return entry{}, false, wrongType()
		}
		limit := count
		if limit < 0 {
			limit = -limit
		}
		drop := make([]bool, len(old.list))
		visit := func(i int) bool {
			if bytes.Equal(old.list[i], value) {
				drop[i] = true
				removed++
			}
			return limit == 0 || removed < limit
		}
		if count >= 0 {
			for i := 0; i < len(old.list) && visit(i); i++ {
			}
		} else {
			for i := len(old.list) - 1; i >= 0 && visit(i); i-- {
			}
		}
		list := make([][]byte, 0, len(old.list))
		for i, v := range old.list {
			if !drop[i] {
				list = append(list, v)
			}
		}
		return entry{kind: kindList, list: list}, len(list) > 0, nil
	})
	return removed, err
}

func (c *connImpl) LInsertBefore(ctx context.Context, key string, pivot, value []byte) (int64, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	var length int64
	err := c.server.update(key, func(old entry, loaded bool) (entry, bool, error) {
		if !loaded {
			length = 0
			return entry{}, false, nil
		}
		if old.kind != kindList {
			return entry{}, false, wrongType()
		}
		at := -1
		for i, v := range old.list {
			if bytes.Equal(v, pivot) {
				at = i
				break
			}
		}
		if at < 0 {
			length = -1
			return old, true, nil
		}
		list := make([][]byte, 0, len(old.list)+1)
		list = append(list, old.list[:at]...)
		list = append(list, copyBytes(value))
		list = append(list, old.list[at:]...)
		length = int64(len(list))
		return entry{kind: kindList, list: list}, true, nil
	})
	return length, err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// normIndex resolves a possibly negative list index.
func normIndex(n, index int64) (int64, bool) {
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return 0, false
	}
	return index, true
}

// clampRange resolves an inclusive start/stop range the way LRANGE does.
func clampRange(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += n
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
