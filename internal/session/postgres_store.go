package session

import (
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"
)

// PostgresStore keeps one snapshot row per uid. The snapshot is stored
// as a JSON blob; the schema stays stable as session fields evolve.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates the sessions table if it does not exist.
func (p *PostgresStore) Migrate() error {
	_, err := p.db.Exec(`CREATE TABLE IF NOT EXISTS client_sessions (
		uid TEXT PRIMARY KEY,
		snapshot JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (p *PostgresStore) Save(snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`INSERT INTO client_sessions(uid, snapshot, updated_at)
		VALUES($1, $2, now())
		ON CONFLICT (uid) DO UPDATE SET snapshot = $2, updated_at = now()`,
		snap.UID, b)
	return err
}

func (p *PostgresStore) Load(uid string) (Snapshot, bool, error) {
	var b []byte
	err := p.db.QueryRow(`SELECT snapshot FROM client_sessions WHERE uid = $1`, uid).Scan(&b)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }
