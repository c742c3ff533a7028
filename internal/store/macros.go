package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
)

// ErrStale is returned by Save when the stored list changed after this
// Store last loaded or saved it.
var ErrStale = errors.New("macro list changed in the database since it was loaded")

const revisionKey = "revision"

// querier is the part of *sql.DB and *sql.Tx used for reads.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readRevision(ctx context.Context, q querier) (int64, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, revisionKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	rev, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

// Revision returns the stored list's revision. It starts at 0 and grows by
// one on every Save.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	return readRevision(ctx, s.db)
}

func (s *Store) remember(rev int64) {
	s.revMu.Lock()
	s.seen, s.tracked = rev, true
	s.revMu.Unlock()
}

// Load returns every stored macro in position order.
//
// A row that does not decode into a valid definition fails the whole load:
// the caller gets an error, never a partial list.
func (s *Store) Load(ctx context.Context) ([]model.Macro, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load macros: begin: %w", err)
	}
	defer tx.Rollback()

	rev, err := readRevision(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("load macros: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT position, name, trigger_key, action, key_text,
		       repeat_count, interval_ns, x, y, start_delay_ns
		FROM macros
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load macros: %w", err)
	}
	defer rows.Close()

	macros := []model.Macro{}
	for rows.Next() {
		m, err := scanMacro(rows)
		if err != nil {
			return nil, fmt.Errorf("load macros: %w", err)
		}
		macros = append(macros, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load macros: %w", err)
	}

	s.remember(rev)
	return macros, nil
}

// Save replaces the stored list with macros in a single transaction.
// On error the previous list is left unchanged.
//
// Once this Store has loaded or saved, Save returns ErrStale instead of
// overwriting a list written through another handle. A Store that has done
// neither writes unconditionally.
func (s *Store) Save(ctx context.Context, macros []model.Macro) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save macros: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rev, err := readRevision(ctx, tx)
	if err != nil {
		return fmt.Errorf("save macros: %w", err)
	}
	s.revMu.Lock()
	stale := s.tracked && rev != s.seen
	s.revMu.Unlock()
	if stale {
		return fmt.Errorf("save macros: %w", ErrStale)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM macros`); err != nil {
		return fmt.Errorf("save macros: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO macros
		(position, name, trigger_key, action, key_text,
		 repeat_count, interval_ns, x, y, start_delay_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save macros: prepare: %w", err)
	}
	defer stmt.Close()

	for i, m := range macros {
		var x, y sql.NullInt64
		if m.Action.At != nil {
			x = sql.NullInt64{Int64: int64(m.Action.At.X), Valid: true}
			y = sql.NullInt64{Int64: int64(m.Action.At.Y), Valid: true}
		}
		if _, err = stmt.ExecContext(ctx,
			i,
			m.Name,
			m.Trigger.String(),
			string(m.Action.Kind),
			m.Action.Key,
			m.Repeat,
			int64(m.Interval),
			x,
			y,
			int64(m.StartDelay),
		); err != nil {
			return fmt.Errorf("save macros: insert %q at %d: %w", m.Name, i, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, revisionKey, strconv.FormatInt(rev+1, 10)); err != nil {
		return fmt.Errorf("save macros: bump revision: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("save macros: commit: %w", err)
	}
	s.remember(rev + 1)
	return nil
}

// Count returns the number of stored macros.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM macros`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count macros: %w", err)
	}
	return n, nil
}

func scanMacro(rows *sql.Rows) (model.Macro, error) {
	var (
		position   int
		name       string
		trigger    string
		action     string
		keyText    string
		repeat     int
		intervalNS int64
		x, y       sql.NullInt64
		delayNS    int64
	)
	if err := rows.Scan(&position, &name, &trigger, &action, &keyText,
		&repeat, &intervalNS, &x, &y, &delayNS); err != nil {
		return model.Macro{}, fmt.Errorf("scan: %w", err)
	}

	k, err := keys.Parse(trigger)
	if err != nil {
		return model.Macro{}, fmt.Errorf("macro at %d: trigger: %w", position, err)
	}
	kind, err := model.ParseActionKind(action)
	if err != nil {
		return model.Macro{}, fmt.Errorf("macro at %d: %w", position, err)
	}
	if x.Valid != y.Valid {
		return model.Macro{}, fmt.Errorf("macro at %d: fixed point needs both x and y", position)
	}

	m := model.Macro{
		Name:       name,
		Trigger:    k,
		Action:     model.Action{Kind: kind, Key: keyText},
		Repeat:     repeat,
		Interval:   time.Duration(intervalNS),
		StartDelay: time.Duration(delayNS),
	}
	if x.Valid {
		m.Action.At = &model.Point{X: int(x.Int64), Y: int(y.Int64)}
	}
	return m, nil
}
