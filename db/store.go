// Package db provides the SQL database collaborator consumed by the engine
// through its CRUD/transaction call surface.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	_ "modernc.org/sqlite"

	"github.com/noodle-lang/nbc/vm"
)

var log = commonlog.GetLogger("nbc.db")

// ErrUnknownTransaction indicates a commit/rollback handle that was never
// issued or was already settled.
var ErrUnknownTransaction = errors.New("unknown transaction handle")

// Drivers supported by Open. Both register with database/sql via blank
// imports.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
)

// Store implements the engine's database surface over database/sql.
// Transactions are keyed by opaque uuid handles so they can travel the
// operand stack as plain values.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	txs map[string]*sql.Tx
}

// Open connects a store using the given driver and DSN. An empty DSN with
// the sqlite driver opens an in-memory database.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverDuckDB:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if driver == DriverSQLite && dsn == "" {
		dsn = ":memory:"
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}
	log.Infof("opened %s database at %q", driver, dsn)
	return &Store{db: conn, txs: make(map[string]*sql.Tx)}, nil
}

// Close rolls back any unsettled transactions and closes the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	for id, tx := range s.txs {
		if err := tx.Rollback(); err != nil {
			log.Warningf("rollback of abandoned transaction %s: %v", id, err)
		}
		delete(s.txs, id)
	}
	s.mu.Unlock()
	return s.db.Close()
}

// Ping probes the connection.
func (s *Store) Ping() error { return s.db.Ping() }

// ExecuteQuery runs a parameterized query and returns the result rows as
// column-name keyed maps.
func (s *Store) ExecuteQuery(query string, params []vm.Value) ([]map[string]vm.Value, error) {
	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var out []map[string]vm.Value
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]vm.Value, len(columns))
		for i, col := range columns {
			row[col] = normalize(cells[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// BeginTransaction opens a transaction and returns its handle.
func (s *Store) BeginTransaction() (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.txs[id] = tx
	s.mu.Unlock()
	return id, nil
}

// CommitTransaction commits and forgets the handle.
func (s *Store) CommitTransaction(id string) error {
	tx, err := s.takeTx(id)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", id, err)
	}
	return nil
}

// RollbackTransaction rolls back and forgets the handle.
func (s *Store) RollbackTransaction(id string) error {
	tx, err := s.takeTx(id)
	if err != nil {
		return err
	}
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rollback %s: %w", id, err)
	}
	return nil
}

func (s *Store) takeTx(id string) (*sql.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, id)
	}
	delete(s.txs, id)
	return tx, nil
}

// normalize converts driver-specific cell types to engine values.
func normalize(v any) vm.Value {
	switch x := v.(type) {
	case []byte:
		return string(x)
	default:
		return x
	}
}
