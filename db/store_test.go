package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/noodle-lang/nbc/vm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("postgres", ""); err == nil {
		t.Error("Open accepted an unsupported driver")
	}
}

func TestOpenInMemorySQLite(t *testing.T) {
	s, err := Open(DriverSQLite, "")
	if err != nil {
		t.Fatalf("Open with empty DSN failed: %v", err)
	}
	defer s.Close()
	if err := s.Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestExecuteQueryCRUD(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.ExecuteQuery("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)", nil); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	if _, err := s.ExecuteQuery("INSERT INTO users (id, name) VALUES (?, ?)", []vm.Value{int64(1), "ada"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := s.ExecuteQuery("INSERT INTO users (id, name) VALUES (?, ?)", []vm.Value{int64(2), "grace"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	rows, err := s.ExecuteQuery("SELECT id, name FROM users ORDER BY id", nil)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["id"] != int64(1) || rows[0]["name"] != "ada" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1]["name"] != "grace" {
		t.Errorf("row 1 = %v", rows[1])
	}
}

func TestExecuteQueryBadSQL(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.ExecuteQuery("SELECT FROM nowhere WHERE", nil); err == nil {
		t.Error("bad SQL did not fail")
	}
}

func TestTransactionHandles(t *testing.T) {
	s := openTestStore(t)

	a, err := s.BeginTransaction()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	b, err := s.BeginTransaction()
	if err != nil {
		t.Fatalf("second begin failed: %v", err)
	}
	if a == b {
		t.Error("transaction handles are not unique")
	}

	if err := s.CommitTransaction(a); err != nil {
		t.Errorf("commit failed: %v", err)
	}
	if err := s.RollbackTransaction(b); err != nil {
		t.Errorf("rollback failed: %v", err)
	}

	// Settled handles are forgotten.
	if err := s.CommitTransaction(a); !errors.Is(err, ErrUnknownTransaction) {
		t.Errorf("double commit = %v, want ErrUnknownTransaction", err)
	}
	if err := s.RollbackTransaction("never-issued"); !errors.Is(err, ErrUnknownTransaction) {
		t.Errorf("rollback of bogus handle = %v, want ErrUnknownTransaction", err)
	}
}

func TestCloseRollsBackAbandonedTransactions(t *testing.T) {
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.BeginTransaction(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close with abandoned transaction failed: %v", err)
	}
}

// The store plugged into the engine end to end.
func TestStoreDrivesDatabaseOpcodes(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.ExecuteQuery("CREATE TABLE kv (k TEXT, v INTEGER)", nil); err != nil {
		t.Fatalf("create table failed: %v", err)
	}

	rt := vm.NewRuntime(vm.DefaultConfig())
	rt.AttachDatabase(s)

	res := rt.Execute([]vm.Instruction{
		vm.Inst(vm.CategoryDatabase, "DB_BEGIN_TX"),
		vm.Inst(vm.CategoryDatabase, "DB_COMMIT_TX"),
		vm.Inst(vm.CategoryDatabase, "DB_QUERY", "INSERT INTO kv (k, v) VALUES (?, ?)", "answer", int64(42)),
		vm.Inst(vm.CategoryMemory, "POP"),
		vm.Inst(vm.CategoryDatabase, "DB_QUERY", "SELECT v FROM kv WHERE k = ?", "answer"),
	})
	if res.Err != nil {
		t.Fatalf("execution failed: %v", res.Err)
	}
	rows, ok := res.Value.([]map[string]vm.Value)
	if !ok {
		t.Fatalf("top of stack is %T, want query rows", res.Value)
	}
	if len(rows) != 1 || rows[0]["v"] != int64(42) {
		t.Errorf("rows = %v", rows)
	}
	if res.Metrics.DatabaseQueries != 2 {
		t.Errorf("DatabaseQueries = %d, want 2", res.Metrics.DatabaseQueries)
	}
}
