package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"stockvault-api/internal/model"
)

// sqlLedger implements Ledger over database/sql. The same code serves the
// SQLite and MySQL backends; only DDL differs (see the constructors).
// A mutex on top of the connection pool keeps whole-operation critical
// sections serialized even when the driver allows more than one writer.
type sqlLedger struct {
	db *sql.DB
	mu sync.RWMutex
}

// View runs fn in a read-only transaction.
func (l *sqlLedger) View(ctx context.Context, fn func(tx Tx) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Update runs fn in a writable transaction. If fn returns an error the
// transaction rolls back and none of its mutations become visible.
func (l *sqlLedger) Update(ctx context.Context, fn func(tx Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Stats returns row counts per collection.
func (l *sqlLedger) Stats(ctx context.Context) (map[string]interface{}, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]interface{})
	counts := map[string]string{
		"users":      "SELECT COUNT(*) FROM users",
		"keys":       "SELECT COUNT(*) FROM redemption_keys",
		"pools":      "SELECT COUNT(*) FROM pools",
		"pool_items": "SELECT COUNT(*) FROM pool_items",
		"bans":       "SELECT COUNT(*) FROM bans",
		"admins":     "SELECT COUNT(*) FROM admins",
	}
	for name, query := range counts {
		var n int64
		if err := l.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		stats[name] = n
	}
	return stats, nil
}

// Close closes the database connection.
func (l *sqlLedger) Close() error {
	return l.db.Close()
}

// sqlTx implements Tx over an open *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) GetUser(id int64) (*model.User, error) {
	query := `SELECT id, std_plan_name, std_max_uses, std_used_uses,
		cards_plan_name, cards_max_uses, cards_used_uses, invalid_key_attempts
		FROM users WHERE id = ?`

	u := &model.User{}
	err := t.tx.QueryRow(query, id).Scan(
		&u.ID,
		&u.Standard.Name, &u.Standard.MaxUses, &u.Standard.UsedUses,
		&u.Cards.Name, &u.Cards.MaxUses, &u.Cards.UsedUses,
		&u.InvalidKeyAttempts,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

func (t *sqlTx) PutUser(u *model.User) error {
	res, err := t.tx.Exec(`UPDATE users SET
		std_plan_name = ?, std_max_uses = ?, std_used_uses = ?,
		cards_plan_name = ?, cards_max_uses = ?, cards_used_uses = ?,
		invalid_key_attempts = ?
		WHERE id = ?`,
		u.Standard.Name, u.Standard.MaxUses, u.Standard.UsedUses,
		u.Cards.Name, u.Cards.MaxUses, u.Cards.UsedUses,
		u.InvalidKeyAttempts, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", u.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = t.tx.Exec(`INSERT INTO users
		(id, std_plan_name, std_max_uses, std_used_uses,
		 cards_plan_name, cards_max_uses, cards_used_uses, invalid_key_attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Standard.Name, u.Standard.MaxUses, u.Standard.UsedUses,
		u.Cards.Name, u.Cards.MaxUses, u.Cards.UsedUses,
		u.InvalidKeyAttempts)
	if err != nil {
		return fmt.Errorf("failed to insert user %d: %w", u.ID, err)
	}
	return nil
}

func (t *sqlTx) ListUsers() ([]*model.User, error) {
	rows, err := t.tx.Query(`SELECT id, std_plan_name, std_max_uses, std_used_uses,
		cards_plan_name, cards_max_uses, cards_used_uses, invalid_key_attempts
		FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(
			&u.ID,
			&u.Standard.Name, &u.Standard.MaxUses, &u.Standard.UsedUses,
			&u.Cards.Name, &u.Cards.MaxUses, &u.Cards.UsedUses,
			&u.InvalidKeyAttempts,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (t *sqlTx) GetKey(code string) (*model.RedemptionKey, error) {
	k := &model.RedemptionKey{}
	err := t.tx.QueryRow(
		`SELECT code, kind, plan_name, max_uses FROM redemption_keys WHERE code = ?`,
		code,
	).Scan(&k.Code, &k.Kind, &k.PlanName, &k.MaxUses)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return k, nil
}

func (t *sqlTx) PutKey(k *model.RedemptionKey) error {
	_, err := t.tx.Exec(
		`INSERT INTO redemption_keys (code, kind, plan_name, max_uses) VALUES (?, ?, ?, ?)`,
		k.Code, k.Kind, k.PlanName, k.MaxUses)
	if err != nil {
		return fmt.Errorf("failed to insert key: %w", err)
	}
	return nil
}

func (t *sqlTx) DeleteKey(code string) error {
	res, err := t.tx.Exec(`DELETE FROM redemption_keys WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *sqlTx) GetPool(kind model.KeyKind, name string) (*model.Pool, error) {
	nameKey := strings.ToLower(name)

	p := &model.Pool{Kind: kind}
	err := t.tx.QueryRow(
		`SELECT name, usage_message FROM pools WHERE kind = ? AND name_key = ?`,
		string(kind), nameKey,
	).Scan(&p.Name, &p.UsageMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool %s/%s: %w", kind, nameKey, err)
	}

	rows, err := t.tx.Query(
		`SELECT label, attachment_ref, attachment_kind FROM pool_items
		 WHERE kind = ? AND name_key = ? ORDER BY id`,
		string(kind), nameKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.Label, &it.AttachmentRef, &it.AttachmentKind); err != nil {
			return nil, fmt.Errorf("failed to scan pool item: %w", err)
		}
		p.Items = append(p.Items, it)
	}
	return p, rows.Err()
}

func (t *sqlTx) PutPool(p *model.Pool) error {
	nameKey := strings.ToLower(p.Name)

	if _, err := t.tx.Exec(
		`DELETE FROM pool_items WHERE kind = ? AND name_key = ?`,
		string(p.Kind), nameKey); err != nil {
		return fmt.Errorf("failed to clear pool items: %w", err)
	}
	if _, err := t.tx.Exec(
		`DELETE FROM pools WHERE kind = ? AND name_key = ?`,
		string(p.Kind), nameKey); err != nil {
		return fmt.Errorf("failed to clear pool: %w", err)
	}

	if _, err := t.tx.Exec(
		`INSERT INTO pools (kind, name_key, name, usage_message) VALUES (?, ?, ?, ?)`,
		string(p.Kind), nameKey, p.Name, p.UsageMessage); err != nil {
		return fmt.Errorf("failed to insert pool: %w", err)
	}

	stmt, err := t.tx.Prepare(
		`INSERT INTO pool_items (kind, name_key, label, attachment_ref, attachment_kind)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range p.Items {
		if _, err := stmt.Exec(
			string(p.Kind), nameKey, it.Label, it.AttachmentRef, string(it.AttachmentKind),
		); err != nil {
			return fmt.Errorf("failed to insert pool item: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) ConsumeItems(kind model.KeyKind, name string, n int) ([]model.Item, error) {
	nameKey := strings.ToLower(name)

	rows, err := t.tx.Query(
		`SELECT id, label, attachment_ref, attachment_kind FROM pool_items
		 WHERE kind = ? AND name_key = ? ORDER BY id LIMIT ?`,
		string(kind), nameKey, n)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	var lastID int64
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&lastID, &it.Label, &it.AttachmentRef, &it.AttachmentKind); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) < n {
		return nil, fmt.Errorf("pool %s/%s holds %d items, need %d", kind, nameKey, len(items), n)
	}

	// Rows are ordered by id, so everything up to lastID is the consumed
	// prefix.
	if _, err := t.tx.Exec(
		`DELETE FROM pool_items WHERE kind = ? AND name_key = ? AND id <= ?`,
		string(kind), nameKey, lastID); err != nil {
		return nil, fmt.Errorf("failed to delete consumed items: %w", err)
	}
	return items, nil
}

func (t *sqlTx) ListPools(kind model.KeyKind) ([]model.PoolSummary, error) {
	rows, err := t.tx.Query(
		`SELECT p.name, COUNT(i.id) FROM pools p
		 LEFT JOIN pool_items i ON i.kind = p.kind AND i.name_key = p.name_key
		 WHERE p.kind = ?
		 GROUP BY p.kind, p.name_key, p.name ORDER BY p.name_key`,
		string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	defer rows.Close()

	var out []model.PoolSummary
	for rows.Next() {
		var s model.PoolSummary
		if err := rows.Scan(&s.Name, &s.ItemCount); err != nil {
			return nil, fmt.Errorf("failed to scan pool summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *sqlTx) IsBanned(id int64) (bool, error) {
	return t.inSet("bans", id)
}

func (t *sqlTx) AddBan(id int64) error {
	return t.addToSet("bans", id)
}

func (t *sqlTx) RemoveBan(id int64) error {
	return t.removeFromSet("bans", id)
}

func (t *sqlTx) ListBans() ([]int64, error) {
	rows, err := t.tx.Query(`SELECT user_id FROM bans ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bans: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *sqlTx) IsAdmin(id int64) (bool, error) {
	return t.inSet("admins", id)
}

func (t *sqlTx) AddAdmin(id int64) error {
	return t.addToSet("admins", id)
}

func (t *sqlTx) RemoveAdmin(id int64) error {
	return t.removeFromSet("admins", id)
}

func (t *sqlTx) inSet(table string, id int64) (bool, error) {
	var n int
	err := t.tx.QueryRow(
		"SELECT COUNT(*) FROM "+table+" WHERE user_id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", table, err)
	}
	return n > 0, nil
}

func (t *sqlTx) addToSet(table string, id int64) error {
	in, err := t.inSet(table, id)
	if err != nil {
		return err
	}
	if in {
		return nil
	}
	if _, err := t.tx.Exec(
		"INSERT INTO "+table+" (user_id) VALUES (?)", id); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (t *sqlTx) removeFromSet(table string, id int64) error {
	res, err := t.tx.Exec("DELETE FROM "+table+" WHERE user_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure sqlLedger implements Ledger
var _ Ledger = (*sqlLedger)(nil)
