// Package archive keeps project snapshots in PostgreSQL. Snapshots are
// deduplicated by a hash of their content so pushing an unchanged project
// twice stores it once.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cnc-frame-wizard/internal/project"
	"cnc-frame-wizard/internal/textutil"
	"cnc-frame-wizard/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound is returned when no archived snapshot has the requested hash.
	ErrNotFound = errors.New("snapshot not found")
	// ErrAmbiguous is returned when a hash prefix matches several snapshots.
	ErrAmbiguous = errors.New("hash prefix is ambiguous")
)

// MinPrefixLen is the shortest hash prefix Get accepts.
const MinPrefixLen = 6

// Record describes one archived snapshot.
type Record struct {
	ID         int64
	Name       string
	Hash       string
	TakenAt    time.Time
	ArchivedAt time.Time
}

// Archive stores snapshots through a connection pool and remembers which
// hashes are already stored.
type Archive struct {
	queries *Queries
	mu      sync.RWMutex
	known   map[string]struct{}
}

// New creates an archive over db.
func New(db DBTX) *Archive {
	return &Archive{
		queries: newQueries(db),
		known:   make(map[string]struct{}),
	}
}

// Connect opens and pings a pool for databaseURL.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("connect PostgreSQL: database_url is not set")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")
	return pool, nil
}

// EnsureSchema creates the snapshot table when missing.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if err := a.queries.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// Preload loads every stored hash into memory.
func (a *Archive) Preload(ctx context.Context) error {
	hashes, err := a.queries.ListSnapshotHashes(ctx)
	if err != nil {
		return fmt.Errorf("preload archive hashes: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, h := range hashes {
		a.known[h] = struct{}{}
	}

	log.Debug().Int("count", len(hashes)).Msg("Preloaded archive hashes")
	return nil
}

// Push stores snap under name. It reports whether a new row was written.
func (a *Archive) Push(ctx context.Context, name string, snap project.Snapshot) (bool, string, error) {
	hash, err := ContentHash(name, snap)
	if err != nil {
		return false, "", err
	}

	a.mu.RLock()
	_, seen := a.known[hash]
	a.mu.RUnlock()
	if seen {
		log.Debug().Str("project", name).Str("hash", textutil.Truncate(hash, 12)).Msg("Snapshot already archived")
		return false, hash, nil
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return false, "", fmt.Errorf("encode snapshot %s: %w", name, err)
	}

	tag, err := a.queries.InsertSnapshot(ctx, InsertSnapshotParams{
		Name:    name,
		Hash:    hash,
		Payload: payload,
		TakenAt: snap.Timestamp,
	})
	if err != nil {
		return false, "", fmt.Errorf("archive snapshot %s: %w", name, err)
	}

	a.mu.Lock()
	a.known[hash] = struct{}{}
	a.mu.Unlock()

	inserted := tag.RowsAffected() > 0
	log.Info().
		Str("project", name).
		Str("hash", textutil.Truncate(hash, 12)).
		Bool("inserted", inserted).
		Msg("Archived snapshot")
	return inserted, hash, nil
}

// PushResult is the outcome of pushing one discovered project.
type PushResult struct {
	Name     string
	Hash     string
	Inserted bool
	Err      error
}

// PushAll pushes every project found under root, loading and inserting them
// with up to workers goroutines.
func (a *Archive) PushAll(ctx context.Context, root string, workers int) ([]PushResult, error) {
	entries, err := project.Walk(root)
	if err != nil {
		return nil, err
	}

	pool := worker.NewPool[project.Entry, PushResult](workers,
		func(ctx context.Context, e project.Entry) (PushResult, error) {
			snap, err := project.Load(e.Path)
			if err != nil {
				return PushResult{Name: e.Name}, err
			}
			inserted, hash, err := a.Push(ctx, e.Name, snap)
			return PushResult{Name: e.Name, Hash: hash, Inserted: inserted}, err
		},
	)

	results := make([]PushResult, 0, len(entries))
	for _, r := range pool.Execute(ctx, entries) {
		out := r.Output
		out.Name = r.Input.Name
		out.Err = r.Err
		results = append(results, out)
	}
	return results, nil
}

// List returns the newest snapshots, optionally restricted to one project.
func (a *Archive) List(ctx context.Context, name string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.queries.ListSnapshots(ctx, name, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			ID:         row.ID,
			Name:       row.Name,
			Hash:       row.Hash,
			TakenAt:    row.TakenAt,
			ArchivedAt: row.ArchivedAt,
		})
	}
	return records, nil
}

// Get returns the archived snapshot whose hash is, or starts with, hash,
// together with its project name.
func (a *Archive) Get(ctx context.Context, hash string) (string, project.Snapshot, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if len(hash) < MinPrefixLen || strings.Trim(hash, "0123456789abcdef") != "" {
		return "", project.Snapshot{}, fmt.Errorf("get snapshot %q: want at least %d hex digits", hash, MinPrefixLen)
	}

	rows, err := a.queries.FindSnapshotsByHashPrefix(ctx, hash)
	if err != nil {
		return "", project.Snapshot{}, fmt.Errorf("get snapshot %s: %w", hash, err)
	}
	switch len(rows) {
	case 0:
		return "", project.Snapshot{}, fmt.Errorf("get snapshot %s: %w", hash, ErrNotFound)
	case 1:
	default:
		return "", project.Snapshot{}, fmt.Errorf("get snapshot %s: %w", hash, ErrAmbiguous)
	}

	snap, err := project.Decode(rows[0].Payload)
	if err != nil {
		return "", project.Snapshot{}, err
	}
	return rows[0].Name, snap, nil
}

// ContentHash identifies a snapshot by project name, dollar namespace and
// generated text. The timestamp is excluded so re-saving an unchanged
// project does not produce a new archive row.
func ContentHash(name string, snap project.Snapshot) (string, error) {
	data, err := json.Marshal(struct {
		Name            string            `json:"name"`
		DollarVariables map[string]string `json:"dollar_variables"`
		GeneratedGCodes map[string]string `json:"generated_gcodes"`
	}{
		Name:            name,
		DollarVariables: snap.DollarVariables.Strings(),
		GeneratedGCodes: snap.GeneratedGCodes,
	})
	if err != nil {
		return "", fmt.Errorf("hash snapshot %s: %w", name, err)
	}
	return textutil.Hash(string(data)), nil
}
