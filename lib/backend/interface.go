package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStrings covers the plain key operations of the remote store.
type IStrings interface {
	// Get returns the value stored at key. The boolean return value indicates whether the key was found.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value at key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) (err error)
	// Delete removes the given keys (of any type) and returns how many existed.
	Delete(ctx context.Context, keys ...string) (removed int64, err error)
	// Exists returns whether key exists.
	Exists(ctx context.Context, key string) (found bool, err error)
	// Incr atomically increments the integer at key (a missing key counts as 0) and returns the new value.
	Incr(ctx context.Context, key string) (value int64, err error)
	// Decr atomically decrements the integer at key (a missing key counts as 0) and returns the new value.
	Decr(ctx context.Context, key string) (value int64, err error)
	// ScanPrefix returns all keys that start with prefix. The order is unspecified.
	ScanPrefix(ctx context.Context, prefix string) (keys []string, err error)
}

// IHashes covers the hash-field operations of the remote store.
// Hashes that lose their last field are removed by the store.
type IHashes interface {
	HGet(ctx context.Context, key, field string) (value []byte, found bool, err error)
	HSet(ctx context.Context, key, field string, value []byte) (err error)
	HDel(ctx context.Context, key string, fields ...string) (removed int64, err error)
	HExists(ctx context.Context, key, field string) (found bool, err error)
	HKeys(ctx context.Context, key string) (fields []string, err error)
	HVals(ctx context.Context, key string) (values [][]byte, err error)
	HGetAll(ctx context.Context, key string) (pairs map[string][]byte, err error)
	HLen(ctx context.Context, key string) (length int64, err error)
}

// ILists covers the list operations of the remote store.
// Indices follow the store convention: negative values count from the tail,
// ranges are inclusive on both ends and clamped to the list bounds.
// Lists that lose their last element are removed by the store.
type ILists interface {
	LPush(ctx context.Context, key string, values ...[]byte) (length int64, err error)
	RPush(ctx context.Context, key string, values ...[]byte) (length int64, err error)
	LPop(ctx context.Context, key string) (value []byte, found bool, err error)
	RPop(ctx context.Context, key string) (value []byte, found bool, err error)
	LRange(ctx context.Context, key string, start, stop int64) (values [][]byte, err error)
	LLen(ctx context.Context, key string) (length int64, err error)
	// LIndex returns the element at index. found is false if the index is out of range.
	LIndex(ctx context.Context, key string, index int64) (value []byte, found bool, err error)
	// LSet overwrites the element at index. It fails with RetCOutOfRange or RetCNoSuchKey.
	LSet(ctx context.Context, key string, index int64, value []byte) (err error)
	// LRem removes count occurrences of value (count > 0 from the head, < 0 from the tail, 0 all).
	LRem(ctx context.Context, key string, count int64, value []byte) (removed int64, err error)
	// LInsertBefore inserts value before the first occurrence of pivot.
	// It returns the new length, -1 if pivot was not found and 0 if the key does not exist.
	LInsertBefore(ctx context.Context, key string, pivot, value []byte) (length int64, err error)
}

// IBackend is the complete set of remote primitives the collections are built on.
// Implementations must be safe for concurrent use.
type IBackend interface {
	IStrings
	IHashes
	ILists

	// Ping is the liveness check used by the connection manager.
	Ping(ctx context.Context) (err error)
	// Close releases the underlying connection.
	Close() (err error)
}

// Source hands out a live backend for a single remote call or a short group of calls.
// The connection manager implements it per endpoint; Static wraps a fixed backend.
type Source interface {
	Backend(ctx context.Context) (IBackend, error)
}

// Static is a Source that always returns the same backend.
type Static struct {
	IBackend
}

// Backend implements Source.
func (s Static) Backend(_ context.Context) (IBackend, error) {
	return s.IBackend, nil
}

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

// Endpoint identifies a store instance.
type Endpoint struct {
	Host string
	Port int
}

// String returns the endpoint in host:port form.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseEndpoint parses a host:port string.
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid port in endpoint %q", s)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// ErrConnection matches every Error with code RetCConnection.
var ErrConnection = errors.New("connection error")

// Error wraps a return code and an error message produced by a backend.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("BackendError (code %s): %s", e.Code, e.Msg)
}

// Is lets errors.Is match connection failures against ErrConnection
// and two backend errors against each other by code.
func (e *Error) Is(target error) bool {
	if target == ErrConnection {
		return e.Code == RetCConnection
	}
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// NewError creates a new backend error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess       RetCode = iota // 0: Command executed successfully.
	RetCInternalError                // 1: Command failed due to an internal error.
	RetCConnection                   // 2: The store could not be reached.
	RetCWrongType                    // 3: The key holds a value of another type.
	RetCOutOfRange                   // 4: A list index is out of range.
	RetCNoSuchKey                    // 5: The key does not exist.
	RetCNotInteger                   // 6: The value is not an integer.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCConnection:
		return "Connection"
	case RetCWrongType:
		return "WrongType"
	case RetCOutOfRange:
		return "OutOfRange"
	case RetCNoSuchKey:
		return "NoSuchKey"
	case RetCNotInteger:
		return "NotInteger"
	default:
		return "Unknown"
	}
}
