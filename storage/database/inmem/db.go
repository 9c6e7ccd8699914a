package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
	"github.com/trezcool/masomo-ledger/core/notification"
)

type (
	DB struct {
		// txMu serialises transactions; mu guards the tables.
		txMu sync.Mutex
		mu   sync.RWMutex

		attendance *attendanceTable
		guardian   *guardianTable
		intent     *intentTable
	}

	attendanceTable struct {
		table map[string]attendance.Record // by id
		keys  map[string]string            // natural key -> id
	}

	guardianTable struct {
		table map[string]map[string]notification.Guardian // student id -> guardian id -> guardian
	}

	intentTable struct {
		table []notification.Intent
	}

	snapshot struct {
		attendance attendanceTable
		guardian   guardianTable
		intent     intentTable
	}
)

func Open() (*DB, error) {
	db := &DB{
		attendance: &attendanceTable{
			table: make(map[string]attendance.Record),
			keys:  make(map[string]string),
		},
		guardian: &guardianTable{table: make(map[string]map[string]notification.Guardian)},
		intent:   &intentTable{},
	}
	return db, nil
}

func (db *DB) snapshot() snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()

	snap := snapshot{
		attendance: attendanceTable{
			table: make(map[string]attendance.Record, len(db.attendance.table)),
			keys:  make(map[string]string, len(db.attendance.keys)),
		},
		guardian: guardianTable{table: make(map[string]map[string]notification.Guardian, len(db.guardian.table))},
		intent:   intentTable{table: append([]notification.Intent(nil), db.intent.table...)},
	}
	for id, rec := range db.attendance.table {
		snap.attendance.table[id] = rec
	}
	for k, id := range db.attendance.keys {
		snap.attendance.keys[k] = id
	}
	for sid, gs := range db.guardian.table {
		cp := make(map[string]notification.Guardian, len(gs))
		for gid, g := range gs {
			cp[gid] = g
		}
		snap.guardian.table[sid] = cp
	}
	return snap
}

func (db *DB) restore(snap snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()

	*db.attendance = snap.attendance
	*db.guardian = snap.guardian
	*db.intent = snap.intent
}

type transactor struct {
	db *DB
}

var _ core.Transactor = (*transactor)(nil)

// NewTransactor returns a Transactor that runs one transaction at a time and
// restores the tables when the transaction fails or panics.
// Writes made outside a transaction are not isolated from it.
func NewTransactor(db *DB) core.Transactor {
	return &transactor{db: db}
}

func (t *transactor) InTx(ctx context.Context, fn core.TxFunc) (err error) {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	if err = ctx.Err(); err != nil {
		return err
	}

	snap := t.db.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.db.restore(snap)
			panic(p)
		}
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			t.db.restore(snap)
		}
	}()
	return fn(ctx, nil)
}

func (t *transactor) InReadTx(ctx context.Context, fn core.TxFunc) error {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, nil)
}
