package pipeline

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"

	_ "modernc.org/sqlite"
)

func init() {
	RegisterSink("sqlite", newSQLiteSink)
}

// SQLiteSink is a local-file backend grounded on the pack's modernc.org/sqlite
// usage: vectors are stored as a float32 BLOB (little-endian) alongside the
// chunk text and the file_path and chunk_index metadata values, one table
// per index; other metadata keys are not stored.
type SQLiteSink struct {
	db *sql.DB
}

func newSQLiteSink(cfg *SinkConfig) (Sink, error) {
	path := cfg.Address
	if path == "" {
		path = "embedflow.db"
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, NewSinkError(SinkPermanent, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, NewSinkError(SinkTransient, err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) tableName(name string) string { return "embedflow_" + sanitizeIdentifier(name) }

func sanitizeIdentifier(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

func (s *SQLiteSink) CreateIndex(ctx context.Context, name string, dimension int, metric Metric, options map[string]interface{}) error {
	table := s.tableName(name)
	schema := `CREATE TABLE IF NOT EXISTS ` + table + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		file_path TEXT,
		chunk_index TEXT,
		dim INTEGER NOT NULL,
		vector BLOB NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return NewSinkError(SinkTransient, err)
	}
	return nil
}

func (s *SQLiteSink) DeleteIndex(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.tableName(name)); err != nil {
		return NewSinkError(SinkTransient, err)
	}
	return nil
}

// sqliteRow is the native representation: one row per unit, vector already
// encoded as a BLOB.
type sqliteRow struct {
	text       string
	filePath   string
	chunkIndex string
	dim        int
	vector     []byte
}

func (s *SQLiteSink) Convert(units []EmbedUnit) (interface{}, error) {
	rows := make([]sqliteRow, 0, len(units))
	for _, u := range units {
		if u.Kind != VectorKindDense {
			return nil, NewConfigError("sqlite sink only supports dense vectors")
		}
		rows = append(rows, sqliteRow{
			text:       u.Text,
			filePath:   u.Metadata["file_path"],
			chunkIndex: u.Metadata["chunk_index"],
			dim:        len(u.Dense),
			vector:     encodeVector(u.Dense),
		})
	}
	return rows, nil
}

func (s *SQLiteSink) Upsert(ctx context.Context, name string, units []EmbedUnit) error {
	converted, err := s.Convert(units)
	if err != nil {
		return err
	}
	rows := converted.([]sqliteRow)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewSinkError(SinkTransient, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO "+s.tableName(name)+" (text, file_path, chunk_index, dim, vector) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return NewSinkError(SinkTransient, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.text, r.filePath, r.chunkIndex, r.dim, r.vector); err != nil {
			tx.Rollback()
			return NewSinkError(SinkTransient, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return NewSinkError(SinkTransient, err)
	}
	return nil
}

func (s *SQLiteSink) Close() error { return s.db.Close() }

func encodeVector(v Vector) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) Vector {
	v := make(Vector, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
