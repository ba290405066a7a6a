// Package sqlitekv is the SQL-style single-file backend, built on
// database/sql against modernc.org/sqlite (a pure-Go driver, no cgo). Every
// record's key/term/cmd/payload are stored as explicit columns rather than
// the packed valuecodec framing the other adapters use, since a relational
// schema can index term directly for ExistsDual without decoding a blob.
package sqlitekv

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
	"go.uber.org/zap"

	"github.com/mattsta/kvidxkit/internal/clock"
	"github.com/mattsta/kvidxkit/internal/valuecodec"
	"github.com/mattsta/kvidxkit/kvidx"
)

func init() {
	kvidx.Register(kvidx.Entry{
		Name:        "sqlite",
		PathSuffix:  ".sqlite3",
		IsDirectory: false,
		Open:        open,
	})
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   INTEGER PRIMARY KEY,
	term  INTEGER NOT NULL,
	cmd   INTEGER NOT NULL,
	value BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS kv_ttl (
	key        INTEGER PRIMARY KEY,
	expires_at INTEGER NOT NULL
);
`

// Conn is the modernc.org/sqlite-backed adapter. An explicit Begin holds a
// single *sql.Tx; outside of one, every operation runs its own short-lived
// transaction via execer/queryer helpers below.
type Conn struct {
	db     *sql.DB
	tx     *sql.Tx
	clock  clock.Clock
	logger *zap.Logger
}

func open(path string, cfg kvidx.Config) (kvidx.Conn, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, kvidx.ErrIo
	}
	db.SetMaxOpenConns(1) // sqlite: one writer at a time; keep it simple

	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode=%s", journalModeString(cfg.JournalMode)),
		fmt.Sprintf("PRAGMA synchronous=%s", syncModeString(cfg.SyncMode)),
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeoutMs),
		"PRAGMA foreign_keys=" + boolPragma(cfg.EnableForeignKeys),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, kvidx.ErrIo
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, kvidx.ErrIo
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{db: db, clock: clock.Real{}, logger: logger}, nil
}

// WithClock swaps in a deterministic clock for TTL tests.
func (c *Conn) WithClock(cl clock.Clock) *Conn {
	c.clock = cl
	return c
}

func journalModeString(m kvidx.JournalMode) string {
	switch m {
	case kvidx.JournalDelete:
		return "DELETE"
	case kvidx.JournalTruncate:
		return "TRUNCATE"
	case kvidx.JournalPersist:
		return "PERSIST"
	case kvidx.JournalMemory:
		return "MEMORY"
	case kvidx.JournalOff:
		return "OFF"
	default:
		return "WAL"
	}
}

func syncModeString(m kvidx.SyncMode) string {
	switch m {
	case kvidx.SyncOff:
		return "OFF"
	case kvidx.SyncFull:
		return "FULL"
	case kvidx.SyncExtra:
		return "EXTRA"
	default:
		return "NORMAL"
	}
}

func boolPragma(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// execer/queryer abstract over *sql.DB and *sql.Tx so every method below
// works whether or not an explicit transaction is open.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *Conn) eq() execer {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

func (c *Conn) Close() error { return c.db.Close() }
func (c *Conn) Fsync() error { return nil } // sqlite fsyncs per its journal/synchronous mode

func (c *Conn) Begin() error {
	if c.tx != nil {
		return nil
	}
	tx, err := c.db.BeginTx(context.Background(), nil)
	if err != nil {
		return kvidx.ErrIo
	}
	c.tx = tx
	c.logger.Debug("tx begin")
	return nil
}

func (c *Conn) Commit() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return kvidx.ErrIo
	}
	c.logger.Debug("tx commit")
	return nil
}

func (c *Conn) Abort() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil {
		return kvidx.ErrIo
	}
	c.logger.Debug("tx abort")
	return nil
}

func (c *Conn) Get(key uint64) (term, cmd uint64, data []byte, ok bool, err error) {
	ctx := context.Background()
	row := c.eq().QueryRowContext(ctx, `SELECT term, cmd, value FROM kv WHERE key = ?`, key)
	var t, cm int64
	var v []byte
	scanErr := row.Scan(&t, &cm, &v)
	if scanErr == sql.ErrNoRows {
		return 0, 0, nil, false, nil
	}
	if scanErr != nil {
		return 0, 0, nil, false, kvidx.ErrIo
	}
	return uint64(t), uint64(cm), v, true, nil
}

func (c *Conn) Insert(key, term, cmd uint64, payload []byte) error {
	exists, err := c.Exists(key)
	if err != nil {
		return err
	}
	if exists {
		return kvidx.ErrDuplicateKey
	}
	return c.upsert(key, term, cmd, payload)
}

// upsert writes key unconditionally, overwriting any existing record. It
// backs Insert (after its own duplicate check), InsertEx, and GetAndSet.
func (c *Conn) upsert(key, term, cmd uint64, payload []byte) error {
	_, err := c.eq().ExecContext(context.Background(),
		`INSERT INTO kv (key, term, cmd, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET term = excluded.term, cmd = excluded.cmd, value = excluded.value`,
		key, int64(term), int64(cmd), payload)
	if err != nil {
		return kvidx.ErrIo
	}
	return nil
}

func (c *Conn) Remove(key uint64) error {
	ctx := context.Background()
	if _, err := c.eq().ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return kvidx.ErrIo
	}
	if _, err := c.eq().ExecContext(ctx, `DELETE FROM kv_ttl WHERE key = ?`, key); err != nil {
		return kvidx.ErrIo
	}
	return nil
}

func (c *Conn) Exists(key uint64) (bool, error) {
	ctx := context.Background()
	var one int
	err := c.eq().QueryRowContext(ctx, `SELECT 1 FROM kv WHERE key = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, kvidx.ErrIo
	}
	return true, nil
}

func (c *Conn) ExistsDual(key, term uint64) (bool, error) {
	ctx := context.Background()
	var one int
	err := c.eq().QueryRowContext(ctx, `SELECT 1 FROM kv WHERE key = ? AND term = ?`, key, int64(term)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, kvidx.ErrIo
	}
	return true, nil
}

func (c *Conn) MaxKey() (uint64, bool, error) {
	var k sql.NullInt64
	err := c.eq().QueryRowContext(context.Background(), `SELECT MAX(key) FROM kv`).Scan(&k)
	if err != nil {
		return 0, false, kvidx.ErrIo
	}
	if !k.Valid {
		return 0, false, nil
	}
	return uint64(k.Int64), true, nil
}

func (c *Conn) MinKey() (uint64, error) {
	var k sql.NullInt64
	err := c.eq().QueryRowContext(context.Background(), `SELECT MIN(key) FROM kv`).Scan(&k)
	if err != nil {
		return 0, kvidx.ErrIo
	}
	if !k.Valid {
		return 0, kvidx.ErrNotFound
	}
	return uint64(k.Int64), nil
}

func (c *Conn) GetNext(key uint64) (uint64, bool, error) {
	var k sql.NullInt64
	err := c.eq().QueryRowContext(context.Background(),
		`SELECT MIN(key) FROM kv WHERE key > ?`, key).Scan(&k)
	if err != nil {
		return 0, false, kvidx.ErrIo
	}
	if !k.Valid {
		return 0, false, nil
	}
	return uint64(k.Int64), true, nil
}

func (c *Conn) GetPrev(key uint64) (uint64, bool, error) {
	var k sql.NullInt64
	err := c.eq().QueryRowContext(context.Background(),
		`SELECT MAX(key) FROM kv WHERE key < ?`, key).Scan(&k)
	if err != nil {
		return 0, false, kvidx.ErrIo
	}
	if !k.Valid {
		return 0, false, nil
	}
	return uint64(k.Int64), true, nil
}

func rangeClause(start, end uint64, startInclusive, endInclusive bool) string {
	lowOp, highOp := ">=", "<="
	if !startInclusive {
		lowOp = ">"
	}
	if !endInclusive {
		highOp = "<"
	}
	return fmt.Sprintf("key %s ? AND key %s ?", lowOp, highOp)
}

func (c *Conn) RemoveRange(start, end uint64, startInclusive, endInclusive bool) (int64, error) {
	ctx := context.Background()
	clause := rangeClause(start, end, startInclusive, endInclusive)
	res, err := c.eq().ExecContext(ctx, `DELETE FROM kv WHERE `+clause, start, end)
	if err != nil {
		return 0, kvidx.ErrIo
	}
	n, _ := res.RowsAffected()
	_, _ = c.eq().ExecContext(ctx, `DELETE FROM kv_ttl WHERE `+clause, start, end)
	return n, nil
}

func (c *Conn) CountRange(start, end uint64) (int64, error) {
	var n int64
	err := c.eq().QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM kv WHERE key >= ? AND key <= ?`, start, end).Scan(&n)
	if err != nil {
		return 0, kvidx.ErrIo
	}
	return n, nil
}

func (c *Conn) ExistsInRange(start, end uint64) (bool, error) {
	n, err := c.CountRange(start, end)
	return n > 0, err
}

func (c *Conn) RemoveAfterNInclusive(key uint64) (int64, error) {
	ctx := context.Background()
	res, err := c.eq().ExecContext(ctx, `DELETE FROM kv WHERE key >= ?`, key)
	if err != nil {
		return 0, kvidx.ErrIo
	}
	n, _ := res.RowsAffected()
	_, _ = c.eq().ExecContext(ctx, `DELETE FROM kv_ttl WHERE key >= ?`, key)
	return n, nil
}

func (c *Conn) RemoveBeforeNInclusive(key uint64) (int64, error) {
	ctx := context.Background()
	res, err := c.eq().ExecContext(ctx, `DELETE FROM kv WHERE key <= ?`, key)
	if err != nil {
		return 0, kvidx.ErrIo
	}
	n, _ := res.RowsAffected()
	_, _ = c.eq().ExecContext(ctx, `DELETE FROM kv_ttl WHERE key <= ?`, key)
	return n, nil
}

func (c *Conn) InsertEx(key, term, cmd uint64, payload []byte, cond kvidx.Condition) error {
	exists, err := c.Exists(key)
	if err != nil {
		return err
	}
	switch cond {
	case kvidx.IfNotExists:
		if exists {
			return kvidx.ErrConditionFailed
		}
	case kvidx.IfExists:
		if !exists {
			return kvidx.ErrConditionFailed
		}
	}
	return c.upsert(key, term, cmd, payload)
}

func (c *Conn) GetAndSet(key, newTerm, newCmd uint64, newPayload []byte) (oldTerm, oldCmd uint64, oldData []byte, existed bool, err error) {
	oldTerm, oldCmd, oldData, existed, err = c.Get(key)
	if err != nil {
		return
	}
	err = c.upsert(key, newTerm, newCmd, newPayload)
	return
}

func (c *Conn) GetAndRemove(key uint64) (term, cmd uint64, data []byte, err error) {
	var ok bool
	term, cmd, data, ok, err = c.Get(key)
	if err != nil {
		return
	}
	if !ok {
		err = kvidx.ErrNotFound
		return
	}
	err = c.Remove(key)
	return
}

func (c *Conn) CompareAndSwap(key uint64, expected []byte, newTerm, newCmd uint64, newPayload []byte) (bool, error) {
	_, _, current, _, err := c.Get(key)
	if err != nil {
		return false, err
	}
	if !bytesEqual(current, expected) {
		return false, nil
	}
	if err := c.upsert(key, newTerm, newCmd, newPayload); err != nil {
		return false, err
	}
	return true, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Conn) Append(key, term, cmd uint64, payload []byte) (int, error) {
	_, _, existing, _, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	combined := append(append([]byte{}, existing...), payload...)
	if err := c.upsert(key, term, cmd, combined); err != nil {
		return 0, err
	}
	return len(combined), nil
}

func (c *Conn) Prepend(key, term, cmd uint64, payload []byte) (int, error) {
	_, _, existing, _, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	combined := append(append([]byte{}, payload...), existing...)
	if err := c.upsert(key, term, cmd, combined); err != nil {
		return 0, err
	}
	return len(combined), nil
}

func (c *Conn) GetValueRange(key uint64, offset, length int) ([]byte, error) {
	term, cmd, payload, ok, err := c.Get(key)
	_ = term
	_ = cmd
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, kvidx.ErrNotFound
	}
	return valuecodec.ReadRange(payload, offset, length), nil
}

func (c *Conn) SetValueRange(key uint64, offset int, data []byte) (int, error) {
	term, cmd, payload, ok, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, kvidx.ErrNotFound
	}
	payload = valuecodec.WriteRange(payload, offset, data)
	if err := c.upsert(key, term, cmd, payload); err != nil {
		return 0, err
	}
	return len(payload), nil
}

func (c *Conn) SetExpire(key uint64, ttlMs int64) error {
	return c.SetExpireAt(key, c.clock.NowMs()+ttlMs)
}

func (c *Conn) SetExpireAt(key uint64, absoluteMs int64) error {
	ok, err := c.Exists(key)
	if err != nil {
		return err
	}
	if !ok {
		return kvidx.ErrNotFound
	}
	_, err = c.eq().ExecContext(context.Background(),
		`INSERT INTO kv_ttl (key, expires_at) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET expires_at = excluded.expires_at`,
		key, absoluteMs)
	if err != nil {
		return kvidx.ErrIo
	}
	return nil
}

func (c *Conn) GetTTL(key uint64) (int64, error) {
	ok, err := c.Exists(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return kvidx.TTLNotFound, nil
	}
	var exp sql.NullInt64
	err = c.eq().QueryRowContext(context.Background(),
		`SELECT expires_at FROM kv_ttl WHERE key = ?`, key).Scan(&exp)
	if err == sql.ErrNoRows || !exp.Valid {
		return kvidx.TTLNone, nil
	}
	if err != nil {
		return 0, kvidx.ErrIo
	}
	remaining := exp.Int64 - c.clock.NowMs()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (c *Conn) Persist(key uint64) error {
	ok, err := c.Exists(key)
	if err != nil {
		return err
	}
	if !ok {
		return kvidx.ErrNotFound
	}
	_, err = c.eq().ExecContext(context.Background(), `DELETE FROM kv_ttl WHERE key = ?`, key)
	if err != nil {
		return kvidx.ErrIo
	}
	return nil
}

func (c *Conn) ExpireScan(ctx context.Context, maxKeys int) (int64, error) {
	now := c.clock.NowMs()
	query := `SELECT key FROM kv_ttl WHERE expires_at <= ?`
	if maxKeys > 0 {
		query += fmt.Sprintf(" LIMIT %d", maxKeys)
	}
	rows, err := c.eq().QueryContext(ctx, query, now)
	if err != nil {
		return 0, kvidx.ErrIo
	}
	var keys []uint64
	for rows.Next() {
		var k int64
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return 0, kvidx.ErrIo
		}
		keys = append(keys, uint64(k))
	}
	rows.Close()

	// Outside an explicit transaction, all deletions share one transaction.
	ex := c.eq()
	var own *sql.Tx
	if c.tx == nil && len(keys) > 0 {
		if own, err = c.db.BeginTx(context.Background(), nil); err != nil {
			return 0, kvidx.ErrIo
		}
		defer own.Rollback() // no-op once committed
		ex = own
	}
	var n int64
	for _, k := range keys {
		if ctx.Err() != nil {
			break
		}
		if _, err := ex.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
			return n, kvidx.ErrIo
		}
		if _, err := ex.ExecContext(ctx, `DELETE FROM kv_ttl WHERE key = ?`, k); err != nil {
			return n, kvidx.ErrIo
		}
		n++
	}
	if own != nil && own.Commit() != nil {
		return 0, kvidx.ErrIo
	}
	return n, ctx.Err()
}

func (c *Conn) GetStats() (kvidx.Stats, error) {
	var s kvidx.Stats
	if err := c.eq().QueryRowContext(context.Background(), `SELECT COUNT(*) FROM kv`).Scan(&s.TotalKeys); err != nil {
		return kvidx.Stats{}, kvidx.ErrIo
	}
	if minKey, err := c.MinKey(); err == nil {
		s.MinKey = minKey
	}
	if maxKey, _, err := c.MaxKey(); err == nil {
		s.MaxKey = maxKey
	}
	var total sql.NullInt64
	if err := c.eq().QueryRowContext(context.Background(),
		`SELECT SUM(LENGTH(value)) FROM kv`).Scan(&total); err == nil && total.Valid {
		s.TotalDataBytes = total.Int64
	}
	var pageCount, pageSize int64
	_ = c.eq().QueryRowContext(context.Background(), `PRAGMA page_count`).Scan(&pageCount)
	_ = c.eq().QueryRowContext(context.Background(), `PRAGMA page_size`).Scan(&pageSize)
	s.PageCount = pageCount
	s.PageSize = pageSize
	s.DatabaseFileSize = pageCount * pageSize
	return s, nil
}

func (c *Conn) GetKeyCount() (int64, error) {
	s, err := c.GetStats()
	return s.TotalKeys, err
}

func (c *Conn) GetMinKey() (uint64, error) { return c.MinKey() }

func (c *Conn) GetDataSize() (int64, error) {
	s, err := c.GetStats()
	return s.TotalDataBytes, err
}

func (c *Conn) ApplyConfig(cfg kvidx.Config) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA synchronous=%s", syncModeString(cfg.SyncMode)),
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeoutMs),
	}
	for _, p := range pragmas {
		if _, err := c.db.Exec(p); err != nil {
			return kvidx.ErrIo
		}
	}
	return nil
}

func (c *Conn) Iterate(opts kvidx.IterOptions) (kvidx.Iterator, error) {
	order := "ASC"
	if opts.Dir == kvidx.Backward {
		order = "DESC"
	}
	rows, err := c.eq().QueryContext(context.Background(),
		fmt.Sprintf(`SELECT key, term, cmd, value FROM kv WHERE key >= ? AND key <= ? ORDER BY key %s`, order),
		opts.Start, opts.End)
	if err != nil {
		return nil, kvidx.ErrIo
	}
	return &iterator{rows: rows, dir: opts.Dir}, nil
}

type iterator struct {
	rows           *sql.Rows
	dir            kvidx.Direction
	key, term, cmd uint64
	data           []byte
	valid          bool
}

func (it *iterator) Next() bool {
	if !it.rows.Next() {
		it.valid = false
		return false
	}
	var k, t, cm int64
	var v []byte
	if err := it.rows.Scan(&k, &t, &cm, &v); err != nil {
		it.valid = false
		return false
	}
	it.key, it.term, it.cmd, it.data = uint64(k), uint64(t), uint64(cm), v
	it.valid = true
	return true
}

func (it *iterator) Valid() bool { return it.valid }
func (it *iterator) Key() uint64 { return it.key }

func (it *iterator) Get() (key, term, cmd uint64, data []byte, err error) {
	if !it.valid {
		return 0, 0, 0, nil, kvidx.ErrInvalidArgument
	}
	return it.key, it.term, it.cmd, it.data, nil
}

// Seek repositions to key if present, else to the nearest in-range key in
// the iteration direction (§4.4). rows are already ordered ASC/DESC to match
// dir, so "nearest in direction" is the first row that has not yet passed
// key in that order. Seek only moves forward through the rows not yet
// consumed: a key the iterator has already passed is not revisited.
func (it *iterator) Seek(key uint64) bool {
	for it.Next() {
		if it.dir == kvidx.Backward {
			if it.key <= key {
				return true
			}
		} else if it.key >= key {
			return true
		}
	}
	return false
}

func (it *iterator) Close() error { return it.rows.Close() }
