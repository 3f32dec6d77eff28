package mbackend

import (
	"context"
	"sync/atomic"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("mbackend")

// --------------------------------------------------------------------------
// Keyspace entries
// --------------------------------------------------------------------------

type kind uint8

const (
	kindString kind = iota + 1
	kindHash
	kindList
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindHash:
		return "hash"
	case kindList:
		return "list"
	default:
		return "none"
	}
}

// entry is one value of the keyspace. Entries are never mutated after they are
// stored, every write builds a new entry (copy on write), so readers can use
// the result of Load without holding a lock.
type entry struct {
	kind kind
	str  []byte
	hash map[string][]byte
	list [][]byte
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Server is an in-process keyspace. Any number of connections can be opened
// on the same server, they all observe the same data.
type Server struct {
	data *xsync.MapOf[string, entry]
	down atomic.Bool
}

// NewServer creates an empty in-process keyspace.
func NewServer() *Server {
	return &Server{
		data: xsync.NewMapOf[string, entry](),
	}
}

// New creates a new server and returns a single connection to it.
func New() backend.IBackend {
	return NewServer().Connect()
}

// Connect opens a new connection to the server.
func (s *Server) Connect() backend.IBackend {
	return &connImpl{server: s}
}

// Dialer returns a dial function that connects to this server for every endpoint.
// Dialing fails with a connection error while the server is down.
func (s *Server) Dialer() func(ctx context.Context, ep backend.Endpoint) (backend.IBackend, error) {
	return func(ctx context.Context, ep backend.Endpoint) (backend.IBackend, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.down.Load() {
			return nil, backend.NewError(backend.RetCConnection, "connection refused: "+ep.String())
		}
		return s.Connect(), nil
	}
}

// SetDown simulates an outage. While the server is down every operation on every
// connection fails with a connection error.
func (s *Server) SetDown(down bool) {
	s.down.Store(down)
	Logger.Debugf("server down=%t", down)
}

// Size returns the number of keys in the keyspace.
func (s *Server) Size() int {
	return s.data.Size()
}

// FlushAll removes every key.
func (s *Server) FlushAll() {
	s.data.Clear()
}

// update applies fn atomically to the entry at key.
// keep=false removes the key, a non nil error leaves the entry untouched.
func (s *Server) update(key string, fn func(old entry, loaded bool) (next entry, keep bool, err error)) error {
	var fnErr error
	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		next, keep, err := fn(old, loaded)
		if err != nil {
			fnErr = err
			return old, !loaded
		}
		return next, !keep
	})
	return fnErr
}

// load returns the entry at key if it has the wanted kind.
func (s *Server) load(key string, want kind) (entry, bool, error) {
	e, ok := s.data.Load(key)
	if !ok {
		return entry{}, false, nil
	}
	if e.kind != want {
		return entry{}, false, wrongType()
	}
	return e, true, nil
}

func wrongType() error {
	return backend.NewError(backend.RetCWrongType, "WRONGTYPE Operation against a key holding the wrong kind of value")
}

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
