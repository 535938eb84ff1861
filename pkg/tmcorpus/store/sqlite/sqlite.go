package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
	"github.com/cognicore/tmcorpus/pkg/tmcorpus/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS datasets (
	name TEXT PRIMARY KEY,
	saved_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS docs (
	dataset TEXT NOT NULL,
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	tokens TEXT NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	PRIMARY KEY(dataset, position),
	FOREIGN KEY(dataset) REFERENCES datasets(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS dataset_info (
	name TEXT PRIMARY KEY,
	language TEXT NOT NULL,
	steps TEXT NOT NULL,
	revision TEXT NOT NULL DEFAULT '',
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS embedding_sets (
	dataset TEXT NOT NULL,
	model TEXT NOT NULL,
	dims INTEGER NOT NULL,
	PRIMARY KEY(dataset, model)
);

CREATE TABLE IF NOT EXISTS word_embeddings (
	dataset TEXT NOT NULL,
	model TEXT NOT NULL,
	word TEXT NOT NULL,
	vector BLOB NOT NULL,
	PRIMARY KEY(dataset, model, word),
	FOREIGN KEY(dataset, model) REFERENCES embedding_sets(dataset, model) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveDocs replaces the documents of a dataset in one transaction
func (s *sqliteStore) SaveDocs(ctx context.Context, dataset string, docs []store.Doc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveDocs(ctx, tx, dataset, docs); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveDataset replaces the documents and the step record of a dataset in one
// transaction.
func (s *sqliteStore) SaveDataset(ctx context.Context, docs []store.Doc, info store.Info) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveDocs(ctx, tx, info.Name, docs); err != nil {
		return err
	}
	if err := saveInfo(ctx, tx, info); err != nil {
		return err
	}
	return tx.Commit()
}

func saveDocs(ctx context.Context, tx *sql.Tx, dataset string, docs []store.Doc) error {
	const upsert = `
INSERT INTO datasets (name, saved_at) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET saved_at=excluded.saved_at;
`
	if _, err := tx.ExecContext(ctx, upsert, dataset, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM docs WHERE dataset=?`, dataset); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO docs (dataset, position, text, tokens, label) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range docs {
		tokens, err := json.Marshal(nonNil(d.Tokens))
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, dataset, i, d.Text, string(tokens), d.Label); err != nil {
			return err
		}
	}
	return nil
}

// LoadDocs returns the documents of a dataset in their saved order
func (s *sqliteStore) LoadDocs(ctx context.Context, dataset string) ([]store.Doc, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM datasets WHERE name = ?`, dataset).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT text, tokens, label FROM docs WHERE dataset = ? ORDER BY position`, dataset)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	docs := []store.Doc{}
	for rows.Next() {
		var (
			d      store.Doc
			tokens string
		)
		if err := rows.Scan(&d.Text, &tokens, &d.Label); err != nil {
			return nil, false, err
		}
		if err := json.Unmarshal([]byte(tokens), &d.Tokens); err != nil {
			return nil, false, fmt.Errorf("decode tokens: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return docs, true, nil
}

// SaveInfo upserts the step record of a dataset
func (s *sqliteStore) SaveInfo(ctx context.Context, info store.Info) error {
	return saveInfo(ctx, s.db, info)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveInfo(ctx context.Context, db execer, info store.Info) error {
	steps, err := json.Marshal(info.PreprocessingSteps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}

	const stmt = `
INSERT INTO dataset_info (name, language, steps, revision, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	language=excluded.language,
	steps=excluded.steps,
	revision=excluded.revision,
	updated_at=excluded.updated_at;
`
	_, err = db.ExecContext(ctx, stmt,
		info.Name,
		info.Language,
		string(steps),
		info.Revision,
		info.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// LoadInfo returns the step record of a dataset
func (s *sqliteStore) LoadInfo(ctx context.Context, dataset string) (store.Info, bool, error) {
	var (
		info      store.Info
		steps     string
		updatedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, language, steps, revision, updated_at FROM dataset_info WHERE name = ?`,
		dataset,
	).Scan(&info.Name, &info.Language, &steps, &info.Revision, &updatedAt)
	if err == sql.ErrNoRows {
		return store.Info{}, false, nil
	}
	if err != nil {
		return store.Info{}, false, err
	}

	if err := json.Unmarshal([]byte(steps), &info.PreprocessingSteps); err != nil {
		return store.Info{}, false, fmt.Errorf("decode steps: %w", err)
	}
	if info.PreprocessingSteps == nil {
		info.PreprocessingSteps = map[string]any{}
	}
	if updatedAt.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt.String); err == nil {
			info.UpdatedAt = ts
		}
	}
	return info, true, nil
}

// SaveEmbeddings replaces the vectors cached for a dataset/model pair
func (s *sqliteStore) SaveEmbeddings(ctx context.Context, dataset, model string, vectors map[string][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	dims := 0
	for _, vec := range vectors {
		dims = len(vec)
		break
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM word_embeddings WHERE dataset=? AND model=?`, dataset, model); err != nil {
		return err
	}
	const upsert = `
INSERT INTO embedding_sets (dataset, model, dims) VALUES (?, ?, ?)
ON CONFLICT(dataset, model) DO UPDATE SET dims=excluded.dims;
`
	if _, err := tx.ExecContext(ctx, upsert, dataset, model, dims); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO word_embeddings (dataset, model, word, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for word, vec := range vectors {
		if _, err := stmt.ExecContext(ctx, dataset, model, word, encodeVector(vec)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadEmbeddings returns the vectors cached for a dataset/model pair
func (s *sqliteStore) LoadEmbeddings(ctx context.Context, dataset, model string) (map[string][]float32, bool, error) {
	var dims int
	err := s.db.QueryRowContext(ctx,
		`SELECT dims FROM embedding_sets WHERE dataset = ? AND model = ?`, dataset, model,
	).Scan(&dims)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT word, vector FROM word_embeddings WHERE dataset = ? AND model = ?`, dataset, model)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	vectors := make(map[string][]float32)
	for rows.Next() {
		var (
			word string
			blob []byte
		)
		if err := rows.Scan(&word, &blob); err != nil {
			return nil, false, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, false, fmt.Errorf("word %q: %w", word, err)
		}
		vectors[word] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return vectors, true, nil
}

// DeleteEmbeddings drops every cached embedding set of a dataset
func (s *sqliteStore) DeleteEmbeddings(ctx context.Context, dataset string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM word_embeddings WHERE dataset=?`, dataset); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM embedding_sets WHERE dataset=?`, dataset); err != nil {
		return err
	}
	return tx.Commit()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes: %w", len(buf), internalerr.ErrInvalidInput)
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
