package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rutosms/internal/errors"
	"rutosms/pkg/rutos/types"

	_ "github.com/mattn/go-sqlite3"
)

// Direction classifies an archive row.
type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionSent     Direction = "sent"
	DirectionDeleted  Direction = "deleted"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	direction TEXT NOT NULL,
	msg_index TEXT NOT NULL DEFAULT '',
	peer TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_direction ON messages(direction);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
`

// Record is one archived bridge event.
type Record struct {
	ID        int64     `json:"id"`
	Direction Direction `json:"direction"`
	Index     string    `json:"index,omitempty"`
	Peer      string    `json:"peer,omitempty"`
	Body      string    `json:"body,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// Archive keeps a local audit trail of everything the bridge did: inbound
// SMS republished to the bus, outbound sends, deletions. It deliberately
// plays no part in republish bookkeeping; the in-memory ledger alone decides
// what is new.
type Archive struct {
	db  *sql.DB
	enc *encryptor
}

// Open opens or creates the archive database at path.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeArchive, "failed to create archive directory")
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchive, "failed to open archive database")
	}

	// One writer at a time keeps sqlite happy under concurrent poll and
	// command activity.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeArchive, "failed to initialize archive schema")
	}

	enc, err := newEncryptor()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Archive{db: db, enc: enc}, nil
}

// SaveReceived archives one inbound SMS as reported by the router.
func (a *Archive) SaveReceived(ctx context.Context, msg types.Message) error {
	peer, err := a.enc.encrypt(msg.Sender)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchive, "failed to encrypt sender")
	}
	body, err := a.enc.encrypt(msg.Text)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchive, "failed to encrypt text")
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO messages (direction, msg_index, peer, body, detail, success) VALUES (?, ?, ?, ?, ?, 1)`,
		DirectionReceived, msg.Index, peer, body, msg.Status,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchive, "failed to archive received message")
	}
	return nil
}

// SaveResult archives the outcome of a send or delete operation. Detail
// carries the router's raw response.
func (a *Archive) SaveResult(ctx context.Context, direction Direction, index, peer, body, detail string, success bool) error {
	encPeer, err := a.enc.encrypt(peer)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchive, "failed to encrypt peer")
	}
	encBody, err := a.enc.encrypt(body)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchive, "failed to encrypt body")
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO messages (direction, msg_index, peer, body, detail, success) VALUES (?, ?, ?, ?, ?, ?)`,
		direction, index, encPeer, encBody, detail, success,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchive, "failed to archive result")
	}
	return nil
}

// RecentMessages returns the newest archived records, newest first.
func (a *Archive) RecentMessages(ctx context.Context, limit int) ([]Record, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, direction, msg_index, peer, body, detail, success, created_at
		 FROM messages ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchive, "failed to query archive")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var success int
		if err := rows.Scan(&rec.ID, &rec.Direction, &rec.Index, &rec.Peer, &rec.Body, &rec.Detail, &success, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeArchive, "failed to scan archive row")
		}
		rec.Success = success != 0

		if rec.Peer, err = a.enc.decrypt(rec.Peer); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeArchive, "failed to decrypt peer")
		}
		if rec.Body, err = a.enc.decrypt(rec.Body); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeArchive, "failed to decrypt body")
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
