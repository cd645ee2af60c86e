package properties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/elC0mpa/aws-spot/internal/db"
	"github.com/elC0mpa/aws-spot/service"
)

const schema = `CREATE TABLE IF NOT EXISTS runtime_properties (
	node       TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (node, key)
)`

// NewSQLiteStore opens, or creates, the property database at path
func NewSQLiteStore(ctx context.Context, path string) (*sqliteStore, error) {
	sqlDB, err := db.Open(path)
	if err != nil {
		return nil, err
	}

	s := &sqliteStore{
		querier: db.NewQuerier(sqlDB),
		close:   sqlDB.Close,
	}
	if _, err := s.querier.Exec(ctx, schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("could not create property schema: %w", err)
	}

	return s, nil
}

func (s *sqliteStore) Node(name string) service.RuntimeProperties {
	return &node{name: name, store: s}
}

func (s *sqliteStore) Nodes(ctx context.Context) ([]string, error) {
	var nodes []string
	err := s.querier.QueryRows(ctx, "SELECT DISTINCT node FROM runtime_properties ORDER BY node", func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		nodes = append(nodes, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not list nodes: %w", err)
	}
	return nodes, nil
}

func (s *sqliteStore) Close() error {
	return s.close()
}

func (s *sqliteStore) get(ctx context.Context, node, key string) (string, error) {
	var value string
	err := s.querier.QueryRow(ctx, "SELECT value FROM runtime_properties WHERE node = ? AND key = ?", func(row *sql.Row) error {
		return row.Scan(&value)
	}, node, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", ErrNotFound, node, key)
	}
	if err != nil {
		return "", fmt.Errorf("could not read property %s of %s: %w", key, node, err)
	}
	return value, nil
}

func (s *sqliteStore) set(ctx context.Context, node, key, value string) error {
	_, err := s.querier.Exec(ctx,
		`INSERT INTO runtime_properties (node, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (node, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		node, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("could not write property %s of %s: %w", key, node, err)
	}
	return nil
}

func (s *sqliteStore) delete(ctx context.Context, node, key string) error {
	if _, err := s.querier.Exec(ctx, "DELETE FROM runtime_properties WHERE node = ? AND key = ?", node, key); err != nil {
		return fmt.Errorf("could not delete property %s of %s: %w", key, node, err)
	}
	return nil
}

func (s *sqliteStore) all(ctx context.Context, node string) (map[string]string, error) {
	values := make(map[string]string)
	err := s.querier.QueryRows(ctx, "SELECT key, value FROM runtime_properties WHERE node = ?", func(rows *sql.Rows) error {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		values[key] = value
		return nil
	}, node)
	if err != nil {
		return nil, fmt.Errorf("could not read properties of %s: %w", node, err)
	}
	return values, nil
}

// NewMemoryStore keeps properties for the lifetime of the process
func NewMemoryStore() *memoryStore {
	return &memoryStore{nodes: make(map[string]map[string]string)}
}

func (m *memoryStore) Node(name string) service.RuntimeProperties {
	return &node{name: name, store: m}
}

func (m *memoryStore) Nodes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	nodes := make([]string, 0, len(m.nodes))
	for name, values := range m.nodes {
		if len(values) > 0 {
			nodes = append(nodes, name)
		}
	}
	sort.Strings(nodes)
	return nodes, nil
}

func (m *memoryStore) Close() error {
	return nil
}

func (m *memoryStore) get(_ context.Context, node, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.nodes[node][key]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrNotFound, node, key)
	}
	return value, nil
}

func (m *memoryStore) set(_ context.Context, node, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nodes[node] == nil {
		m.nodes[node] = make(map[string]string)
	}
	m.nodes[node][key] = value
	return nil
}

func (m *memoryStore) delete(_ context.Context, node, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.nodes[node], key)
	return nil
}

func (m *memoryStore) all(_ context.Context, node string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make(map[string]string, len(m.nodes[node]))
	for k, v := range m.nodes[node] {
		values[k] = v
	}
	return values, nil
}

func (n *node) Get(ctx context.Context, key string) (string, error) {
	return n.store.get(ctx, n.name, key)
}

func (n *node) Set(ctx context.Context, key, value string) error {
	return n.store.set(ctx, n.name, key, value)
}

func (n *node) Delete(ctx context.Context, key string) error {
	return n.store.delete(ctx, n.name, key)
}

func (n *node) All(ctx context.Context) (map[string]string, error) {
	return n.store.all(ctx, n.name)
}

// Open returns the store selected by driver, "sqlite" or "memory"
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStore(ctx, path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown property store driver %q", driver)
	}
}
