package rbackend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
)

var Logger = logger.GetLogger("rbackend")

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 100

// Options configures the Redis client created by Dial.
type Options struct {
	Password     string
	DB           int
	DialTimeout  time.Duration // 0 = go-redis default
	ReadTimeout  time.Duration // 0 = go-redis default
	WriteTimeout time.Duration // 0 = go-redis default
}

type backendImpl struct {
	client *redis.Client
}

// New wraps an existing go-redis client as backend.IBackend.
// Closing the backend closes the client.
func New(client *redis.Client) backend.IBackend {
	return &backendImpl{client: client}
}

// Dial connects to the Redis server at ep and verifies the connection with a ping.
func Dial(ctx context.Context, ep backend.Endpoint, opts Options) (backend.IBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         ep.String(),
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", ep, translate(err))
	}

	Logger.Debugf("connected to redis at %s (db %d)", ep, opts.DB)
	return New(client), nil
}

// Dialer returns a dial function with fixed options, suitable for conn.NewPool.
func Dialer(opts Options) func(ctx context.Context, ep backend.Endpoint) (backend.IBackend, error) {
	return func(ctx context.Context, ep backend.Endpoint) (backend.IBackend, error) {
		return Dial(ctx, ep, opts)
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (b *backendImpl) Ping(ctx context.Context) error {
	return translate(b.client.Ping(ctx).Err())
}

func (b *backendImpl) Close() error {
	return b.client.Close()
}

func (b *backendImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return bytesResult(b.client.Get(ctx, key))
}

func (b *backendImpl) Set(ctx context.Context, key string, value []byte) error {
	return translate(b.client.Set(ctx, key, value, 0).Err())
}

func (b *backendImpl) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := b.client.Del(ctx, keys...).Result()
	return n, translate(err)
}

func (b *backendImpl) Exists(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Exists(ctx, key).Result()
	return n > 0, translate(err)
}

func (b *backendImpl) Incr(ctx context.Context, key string) (int64, error) {
	n, err := b.client.Incr(ctx, key).Result()
	return n, translate(err)
}

func (b *backendImpl) Decr(ctx context.Context, key string) (int64, error) {
	n, err := b.client.Decr(ctx, key).Result()
	return n, translate(err)
}

func (b *backendImpl) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var cursor uint64
	pattern := escapeGlob(prefix) + "*"

	for {
		batch, next, err := b.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, translate(err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			break
		}
		cursor = next
	}

	// SCAN may return a key more than once
	return dedupe(keys), nil
}

func (b *backendImpl) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	return bytesResult(b.client.HGet(ctx, key, field))
}

func (b *backendImpl) HSet(ctx context.Context, key, field string, value []byte) error {
	return translate(b.client.HSet(ctx, key, field, value).Err())
}

func (b *backendImpl) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	n, err := b.client.HDel(ctx, key, fields...).Result()
	return n, translate(err)
}

func (b *backendImpl) HExists(ctx context.Context, key, field string) (bool, error) {
	ok, err := b.client.HExists(ctx, key, field).Result()
	return ok, translate(err)
}

func (b *backendImpl) HKeys(ctx context.Context, key string) ([]string, error) {
	fields, err := b.client.HKeys(ctx, key).Result()
	return fields, translate(err)
}

func (b *backendImpl) HVals(ctx context.Context, key string) ([][]byte, error) {
	values, err := b.client.HVals(ctx, key).Result()
	if err != nil {
		return nil, translate(err)
	}
	return toBytes(values), nil
}

func (b *backendImpl) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	pairs, err := b.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, translate(err)
	}
	result := make(map[string][]byte, len(pairs))
	for field, value := range pairs {
		result[field] = []byte(value)
	}
	return result, nil
}

func (b *backendImpl) HLen(ctx context.Context, key string) (int64, error) {
	n, err := b.client.HLen(ctx, key).Result()
	return n, translate(err)
}

func (b *backendImpl) LPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	if len(values) == 0 {
		return b.LLen(ctx, key)
	}
	n, err := b.client.LPush(ctx, key, toArgs(values)...).Result()
	return n, translate(err)
}

func (b *backendImpl) RPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	if len(values) == 0 {
		return b.LLen(ctx, key)
	}
	n, err := b.client.RPush(ctx, key, toArgs(values)...).Result()
	return n, translate(err)
}

func (b *backendImpl) LPop(ctx context.Context, key string) ([]byte, bool, error) {
	return bytesResult(b.client.LPop(ctx, key))
}

func (b *backendImpl) RPop(ctx context.Context, key string) ([]byte, bool, error) {
	return bytesResult(b.client.RPop(ctx, key))
}

func (b *backendImpl) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	values, err := b.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, translate(err)
	}
	return toBytes(values), nil
}

func (b *backendImpl) LLen(ctx context.Context, key string) (int64, error) {
	n, err := b.client.LLen(ctx, key).Result()
	return n, translate(err)
}

func (b *backendImpl) LIndex(ctx context.Context, key string, index int64) ([]byte, bool, error) {
	return bytesResult(b.client.LIndex(ctx, key, index))
}

func (b *backendImpl) LSet(ctx context.Context, key string, index int64, value []byte) error {
	return translate(b.client.LSet(ctx, key, index, value).Err())
}

func (b *backendImpl) LRem(ctx context.Context, key string, count int64, value []byte) (int64, error) {
	n, err := b.client.LRem(ctx, key, count, value).Result()
	return n, translate(err)
}

func (b *backendImpl) LInsertBefore(ctx context.Context, key string, pivot, value []byte) (int64, error) {
	n, err := b.client.LInsertBefore(ctx, key, pivot, value).Result()
	return n, translate(err)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// bytesResult unpacks a reply that may be nil (missing key, field or index).
func bytesResult(cmd *redis.StringCmd) ([]byte, bool, error) {
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, translate(err)
	}
	return data, true, nil
}

// translate maps go-redis errors onto backend error codes.
// Context errors are passed through unchanged so callers can match them.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "WRONGTYPE"):
		return backend.NewError(backend.RetCWrongType, msg)
	case strings.Contains(msg, "index out of range"):
		return backend.NewError(backend.RetCOutOfRange, msg)
	case strings.Contains(msg, "no such key"):
		return backend.NewError(backend.RetCNoSuchKey, msg)
	case strings.Contains(msg, "not an integer"):
		return backend.NewError(backend.RetCNotInteger, msg)
	}

	// a reply from the server is an internal error, everything else is the connection
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return backend.NewError(backend.RetCInternalError, msg)
	}
	return backend.NewError(backend.RetCConnection, msg)
}

// escapeGlob escapes the characters SCAN MATCH treats as pattern syntax.
// It works on bytes, keys do not have to be valid UTF-8.
func escapeGlob(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '*', '?', '[', ']', '\\', '^', '-':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func toArgs(values [][]byte) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func toBytes(values []string) [][]byte {
	result := make([][]byte, len(values))
	for i, v := range values {
		result[i] = []byte(v)
	}
	return result
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	result := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}
	return result
}
