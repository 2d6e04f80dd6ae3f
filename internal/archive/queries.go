package archive

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Queries wraps the archive statements.
type Queries struct {
	db DBTX
}

func newQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const createSnapshotTable = `
CREATE TABLE IF NOT EXISTS project_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT        NOT NULL,
    hash        TEXT        NOT NULL UNIQUE,
    payload     JSONB       NOT NULL,
    taken_at    TIMESTAMPTZ NOT NULL,
    archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createSnapshotNameIndex = `
CREATE INDEX IF NOT EXISTS project_snapshots_name_idx ON project_snapshots (name, taken_at DESC)`

func (q *Queries) EnsureSchema(ctx context.Context) error {
	if _, err := q.db.Exec(ctx, createSnapshotTable); err != nil {
		return err
	}
	_, err := q.db.Exec(ctx, createSnapshotNameIndex)
	return err
}

const insertSnapshot = `
INSERT INTO project_snapshots (name, hash, payload, taken_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (hash) DO NOTHING`

type InsertSnapshotParams struct {
	Name    string
	Hash    string
	Payload []byte
	TakenAt time.Time
}

func (q *Queries) InsertSnapshot(ctx context.Context, arg InsertSnapshotParams) (pgconn.CommandTag, error) {
	return q.db.Exec(ctx, insertSnapshot, arg.Name, arg.Hash, arg.Payload, arg.TakenAt)
}

const listSnapshots = `
SELECT id, name, hash, taken_at, archived_at
FROM project_snapshots
WHERE ($1 = '' OR name = $1)
ORDER BY taken_at DESC, id DESC
LIMIT $2`

type ListSnapshotsRow struct {
	ID         int64
	Name       string
	Hash       string
	TakenAt    time.Time
	ArchivedAt time.Time
}

func (q *Queries) ListSnapshots(ctx context.Context, name string, limit int32) ([]ListSnapshotsRow, error) {
	rows, err := q.db.Query(ctx, listSnapshots, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListSnapshotsRow
	for rows.Next() {
		var i ListSnapshotsRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Hash, &i.TakenAt, &i.ArchivedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const findSnapshotsByHashPrefix = `
SELECT name, hash, payload FROM project_snapshots
WHERE hash LIKE $1 || '%'
ORDER BY hash
LIMIT 2`

type FindSnapshotsByHashPrefixRow struct {
	Name    string
	Hash    string
	Payload []byte
}

func (q *Queries) FindSnapshotsByHashPrefix(ctx context.Context, prefix string) ([]FindSnapshotsByHashPrefixRow, error) {
	rows, err := q.db.Query(ctx, findSnapshotsByHashPrefix, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FindSnapshotsByHashPrefixRow
	for rows.Next() {
		var i FindSnapshotsByHashPrefixRow
		if err := rows.Scan(&i.Name, &i.Hash, &i.Payload); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listSnapshotHashes = `
SELECT hash FROM project_snapshots`

func (q *Queries) ListSnapshotHashes(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listSnapshotHashes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}
