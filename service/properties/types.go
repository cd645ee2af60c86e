package properties

import (
	"context"
	"sync"

	"github.com/elC0mpa/aws-spot/internal/db"
	"github.com/elC0mpa/aws-spot/service"
)

// ErrNotFound is returned by Get for keys that were never set
var ErrNotFound = service.ErrPropertyNotFound

type sqliteStore struct {
	querier *db.Querier
	close   func() error
}

type memoryStore struct {
	mu    sync.RWMutex
	nodes map[string]map[string]string
}

// node binds a store to one node name
type node struct {
	name  string
	store backend
}

type backend interface {
	get(ctx context.Context, node, key string) (string, error)
	set(ctx context.Context, node, key, value string) error
	delete(ctx context.Context, node, key string) error
	all(ctx context.Context, node string) (map[string]string, error)
}

// Store persists runtime properties for any number of nodes
type Store interface {
	Node(name string) service.RuntimeProperties
	Nodes(ctx context.Context) ([]string, error)
	Close() error
}
