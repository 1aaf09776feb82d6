package sink

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fsetools/fseparse/record"
)

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	event_id INTEGER NOT NULL,
	flag_bits INTEGER NOT NULL,
	flags TEXT NOT NULL,
	alt_flags TEXT NOT NULL,
	node_id INTEGER,
	extra_id INTEGER,
	source TEXT NOT NULL,
	file_timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_path ON records(path);
CREATE INDEX IF NOT EXISTS idx_records_event_id ON records(event_id);
`

// SQLiteWriter stores records in a local SQLite database, one row per record.
type SQLiteWriter struct {
	db   *sql.DB
	stmt *sql.Stmt
}

func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	if _, err := db.Exec(createRecordsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating records table: %w", err)
	}

	stmt, err := db.Prepare(`INSERT INTO records
		(path, event_id, flag_bits, flags, alt_flags, node_id, extra_id, source, file_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}

	return &SQLiteWriter{db: db, stmt: stmt}, nil
}

func (s *SQLiteWriter) Write(rec *record.Record) error {
	var nodeID, extraID interface{}
	if rec.NodeID != nil {
		nodeID = int64(*rec.NodeID)
	}
	if rec.ExtraID != nil {
		extraID = int64(*rec.ExtraID)
	}

	_, err := s.stmt.Exec(
		rec.Path,
		int64(rec.EventID),
		int64(rec.FlagBits),
		rec.Flags.Norm,
		rec.Flags.Alt,
		nodeID,
		extraID,
		rec.Source,
		rec.FileTimestamp.UTC().Format("2006-01-02T15:04:05Z"),
	)
	return err
}

func (s *SQLiteWriter) Close() error {
	s.stmt.Close()
	return s.db.Close()
}
