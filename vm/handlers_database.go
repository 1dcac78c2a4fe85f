package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Database handlers
// ---------------------------------------------------------------------------
// All database opcodes require an attached DatabaseBackend; dispatch routes
// to a single DatabaseNotConfigured path when none is present. Backend
// calls are opaque blocking calls, not suspension points.

func init() {
	registerHandlers(CategoryDatabase, map[string]handlerFunc{
		"DB_QUERY":       handleDBQuery,
		"DB_BEGIN_TX":    handleDBBeginTx,
		"DB_COMMIT_TX":   dbTxEnd("DB_COMMIT_TX", func(db DatabaseBackend, id string) error { return db.CommitTransaction(id) }),
		"DB_ROLLBACK_TX": dbTxEnd("DB_ROLLBACK_TX", func(db DatabaseBackend, id string) error { return db.RollbackTransaction(id) }),
	})
}

func requireDatabase(rt *Runtime, opcode string) (DatabaseBackend, error) {
	if rt.db == nil {
		return nil, newFault(FaultDatabaseNotConfigured,
			fmt.Sprintf("%s requires a database backend", opcode))
	}
	return rt.db, nil
}

// handleDBQuery executes a parameterized query from the instruction
// operands and pushes the result rows.
func handleDBQuery(rt *Runtime, in *Instruction) error {
	db, err := requireDatabase(rt, "DB_QUERY")
	if err != nil {
		return err
	}
	if len(in.Operands) == 0 {
		return newFault(FaultMissingOperands, "DB_QUERY requires a query operand")
	}
	query, ok := in.Operands[0].(string)
	if !ok {
		return newFault(FaultTypeMismatch,
			fmt.Sprintf("DB_QUERY query %v is not a string", in.Operands[0]))
	}
	params := in.Operands[1:]
	rows, err := db.ExecuteQuery(query, params)
	if err != nil {
		return wrapFault(FaultCollaborator, "database query failed", err).
			WithContext("query", query)
	}
	rt.countDatabaseQuery(query)
	rt.push(rows)
	return nil
}

// handleDBBeginTx opens a transaction and pushes its handle.
func handleDBBeginTx(rt *Runtime, in *Instruction) error {
	db, err := requireDatabase(rt, "DB_BEGIN_TX")
	if err != nil {
		return err
	}
	id, err := db.BeginTransaction()
	if err != nil {
		return wrapFault(FaultCollaborator, "begin transaction failed", err)
	}
	rt.push(id)
	return nil
}

// dbTxEnd pops a transaction handle and commits or rolls it back.
func dbTxEnd(opcode string, fn func(db DatabaseBackend, id string) error) handlerFunc {
	return func(rt *Runtime, in *Instruction) error {
		db, err := requireDatabase(rt, opcode)
		if err != nil {
			return err
		}
		raw, err := rt.pop()
		if err != nil {
			return err
		}
		id, ok := raw.(string)
		if !ok {
			return newFault(FaultTypeMismatch,
				fmt.Sprintf("%s handle %T is not a transaction id", opcode, raw))
		}
		if err := fn(db, id); err != nil {
			return wrapFault(FaultCollaborator, fmt.Sprintf("%s failed", opcode), err).
				WithContext("transaction", id)
		}
		return nil
	}
}
