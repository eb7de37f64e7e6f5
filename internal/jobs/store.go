package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists the last job load so the cache is warm before the first
// fetch completes and the WIP view can search offline.
type Store struct {
	dbPath     string
	db         *sql.DB
	ftsEnabled bool
	mu         sync.Mutex
}

func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	s := &Store{dbPath: dbPath, db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS jobs (
			job_key TEXT PRIMARY KEY,
			job_number TEXT NOT NULL,
			client_code TEXT,
			update_due TEXT,
			payload TEXT NOT NULL,
			loaded_at INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_client ON jobs(client_code);`,
		`CREATE TABLE IF NOT EXISTS loads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			loaded_at INTEGER,
			job_count INTEGER
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return s.ensureFTSTable()
}

func (s *Store) ensureFTSTable() error {
	var sqlDef string
	err := s.db.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'jobs_fts'`).Scan(&sqlDef)
	if err == nil {
		lower := strings.ToLower(sqlDef)
		s.ftsEnabled = strings.Contains(lower, "virtual table") && strings.Contains(lower, "fts5")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inspect jobs_fts table: %w", err)
	}

	_, err = s.db.Exec(`CREATE VIRTUAL TABLE jobs_fts USING fts5(
		job_key UNINDEXED,
		body
	);`)
	if err == nil {
		s.ftsEnabled = true
		return nil
	}
	if !strings.Contains(strings.ToLower(err.Error()), "no such module: fts5") {
		return fmt.Errorf("create jobs_fts: %w", err)
	}

	// go-sqlite3 only ships FTS5 with the sqlite_fts5 build tag.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS jobs_fts (
		job_key TEXT PRIMARY KEY,
		body TEXT
	);`); err != nil {
		return fmt.Errorf("create jobs_fts fallback table: %w", err)
	}
	s.ftsEnabled = false
	return nil
}

// ReplaceAll swaps the stored job set for records in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs_fts;`); err != nil {
		return fmt.Errorf("clear jobs_fts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs;`); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}

	insertJob, err := tx.PrepareContext(ctx, `
		INSERT INTO jobs(job_key, job_number, client_code, update_due, payload, loaded_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_key) DO UPDATE SET
			job_number=excluded.job_number,
			client_code=excluded.client_code,
			update_due=excluded.update_due,
			payload=excluded.payload,
			loaded_at=excluded.loaded_at
	`)
	if err != nil {
		return fmt.Errorf("prepare job insert: %w", err)
	}
	defer insertJob.Close()

	insertFTS, err := tx.PrepareContext(ctx, `INSERT INTO jobs_fts(job_key, body) VALUES(?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare fts insert: %w", err)
	}
	defer insertFTS.Close()

	now := time.Now().Unix()
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		key := r.Key()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode job %s: %w", r.Number, err)
		}
		if _, err := insertJob.ExecContext(ctx, key, r.Number, r.Client(), r.UpdateDue, string(payload), now); err != nil {
			return fmt.Errorf("insert job %s: %w", r.Number, err)
		}
		if _, err := insertFTS.ExecContext(ctx, key, searchBody(r)); err != nil {
			return fmt.Errorf("index job %s: %w", r.Number, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO loads(loaded_at, job_count) VALUES(?, ?)`, now, len(seen)); err != nil {
		return fmt.Errorf("record load: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit job replace: %w", err)
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM jobs
		ORDER BY CASE WHEN COALESCE(update_due, '') = '' THEN 1 ELSE 0 END, update_due, job_key
	`)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	return scanRecords(rows)
}

// LastLoad reports when the stored set was written; zero if never.
func (s *Store) LastLoad(ctx context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(loaded_at) FROM loads`).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("query last load: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0), nil
}

// Search matches query terms against job number, name, description and the
// latest update. Results are ordered by due date.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 200
	}
	if strings.TrimSpace(query) == "" {
		rows, err := s.db.QueryContext(ctx, `
			SELECT payload FROM jobs
			ORDER BY CASE WHEN COALESCE(update_due, '') = '' THEN 1 ELSE 0 END, update_due, job_key
			LIMIT ?
		`, limit)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		return scanRecords(rows)
	}

	if s.ftsEnabled {
		rows, err := s.searchFTS(ctx, query, limit)
		if err == nil {
			return scanRecords(rows)
		}
		fallback, fbErr := s.searchLike(ctx, query, limit)
		if fbErr != nil {
			return nil, fmt.Errorf("search jobs (fts and fallback failed): fts=%w, fallback=%v", err, fbErr)
		}
		return scanRecords(fallback)
	}
	rows, err := s.searchLike(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (s *Store) searchFTS(ctx context.Context, query string, limit int) (*sql.Rows, error) {
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, fmt.Errorf("empty fts query")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT j.payload
		FROM jobs j
		JOIN jobs_fts f ON f.job_key = j.job_key
		WHERE jobs_fts MATCH ?
		ORDER BY CASE WHEN COALESCE(j.update_due, '') = '' THEN 1 ELSE 0 END, j.update_due, j.job_key
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query failed: %w", err)
	}
	return rows, nil
}

func (s *Store) searchLike(ctx context.Context, query string, limit int) (*sql.Rows, error) {
	terms := tokenizeSearchTerms(query)
	if len(terms) == 0 {
		terms = []string{strings.ToLower(strings.TrimSpace(query))}
	}

	var b strings.Builder
	b.WriteString(`
		SELECT j.payload
		FROM jobs j
		JOIN jobs_fts f ON f.job_key = j.job_key
		WHERE `)
	args := make([]any, 0, len(terms)+1)
	for idx, term := range terms {
		if idx > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("LOWER(f.body) LIKE ?")
		args = append(args, "%"+term+"%")
	}
	b.WriteString(`
		ORDER BY CASE WHEN COALESCE(j.update_due, '') = '' THEN 1 ELSE 0 END, j.update_due, j.job_key
		LIMIT ?
	`)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("like query failed: %w", err)
	}
	return rows, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	out := make([]Record, 0, 128)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		var r Record
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode job row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return out, nil
}

func searchBody(r Record) string {
	parts := []string{r.Number, Normalize(r.Number), r.Name, r.Description, r.Update, r.Stage, r.Status}
	return strings.ToLower(strings.Join(parts, " "))
}

func buildFTSQuery(raw string) string {
	parts := tokenizeSearchTerms(raw)
	if len(parts) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(p, `"`, "")
		if p == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf(`"%s"*`, p))
	}
	return strings.Join(quoted, " AND ")
}

func tokenizeSearchTerms(raw string) []string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "`\"'.,:;!?()[]{}<>|")
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
