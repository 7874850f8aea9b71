package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps champions in a SQLite database file. Genomes are stored
// in their JSON persistence format.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveChampion(ctx context.Context, record ChampionRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(record.Genome)
	if err != nil {
		return fmt.Errorf("encode champion genome %d: %w", record.GenomeID, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO champions (run_id, generation, genome_id, fitness, saved_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			genome_id = excluded.genome_id,
			fitness = excluded.fitness,
			saved_at = excluded.saved_at,
			payload = excluded.payload
	`, record.RunID, record.Generation, record.GenomeID, record.Fitness, record.SavedAt.UnixNano(), payload)
	return err
}

func (s *SQLiteStore) GetChampion(ctx context.Context, runID string, generation int) (ChampionRecord, bool, error) {
	return s.queryOne(ctx, `
		SELECT run_id, generation, genome_id, fitness, saved_at, payload
		FROM champions WHERE run_id = ? AND generation = ?
	`, runID, generation)
}

func (s *SQLiteStore) BestChampion(ctx context.Context, runID string) (ChampionRecord, bool, error) {
	return s.queryOne(ctx, `
		SELECT run_id, generation, genome_id, fitness, saved_at, payload
		FROM champions WHERE run_id = ?
		ORDER BY fitness DESC, generation DESC
		LIMIT 1
	`, runID)
}

func (s *SQLiteStore) ListChampions(ctx context.Context, runID string) ([]ChampionRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, generation, genome_id, fitness, saved_at, payload
		FROM champions WHERE run_id = ?
		ORDER BY generation
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ChampionRecord
	for rows.Next() {
		record, err := scanChampion(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT DISTINCT run_id FROM champions ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var runID string
		if err := rows.Scan(&runID); err != nil {
			return nil, err
		}
		runs = append(runs, runID)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) queryOne(ctx context.Context, query string, args ...any) (ChampionRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return ChampionRecord{}, false, err
	}

	record, err := scanChampion(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ChampionRecord{}, false, nil
		}
		return ChampionRecord{}, false, err
	}
	return record, true, nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChampion(row scanner) (ChampionRecord, error) {
	var (
		record  ChampionRecord
		savedAt int64
		payload []byte
	)
	if err := row.Scan(&record.RunID, &record.Generation, &record.GenomeID, &record.Fitness, &savedAt, &payload); err != nil {
		return ChampionRecord{}, err
	}
	if err := json.Unmarshal(payload, &record.Genome); err != nil {
		return ChampionRecord{}, fmt.Errorf("decode champion genome %d: %w", record.GenomeID, err)
	}
	record.SavedAt = time.Unix(0, savedAt).UTC()
	return record, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS champions (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			genome_id INTEGER NOT NULL,
			fitness REAL NOT NULL,
			saved_at INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	return err
}
