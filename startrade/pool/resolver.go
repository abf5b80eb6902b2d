package pool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hyeseon-dev/startrade/startrade/ledger"
)

// Pool Change ledger columns (1-based): player name, change type, value,
// comment, new full-pool id.
const (
	ColPlayer  = 1
	ColChange  = 2
	ColValue   = 3
	ColComment = 4
	ColPoolID  = 5

	ChangeAdd    = "add card"
	ChangeRemove = "remove card"
)

// ChangeRow builds one Pool Change ledger row.
func ChangeRow(player, changeType, card, comment, poolID string) ledger.Row {
	return ledger.Row{player, changeType, card, comment, poolID}
}

// Pools sheet columns (1-based): pool id, player name, serialized contents.
const (
	snapColID       = 1
	snapColPlayer   = 2
	snapColContents = 3
)

const (
	snapshotCacheSize = 256
	warmConcurrency   = 4
)

type Resolver interface {
	// CurrentPool returns the player's latest materialized pool, resolved
	// through the Pool Change ledger.
	CurrentPool(ctx context.Context, playerName string) (*Pool, error)

	// Materialize persists a new pool snapshot and returns its pool id. The
	// snapshot is invisible to readers until a Pool Change row references it.
	Materialize(ctx context.Context, playerName string, p *Pool) (string, error)
}

// SheetResolver resolves pools against the Pools snapshot sheet and the Pool
// Change ledger. Snapshots are immutable once written, which makes the pool-id
// keyed LRU safe: an entry can go stale only by eviction, never by mutation.
type SheetResolver struct {
	gateway      ledger.Gateway
	poolsSheet   string
	changesSheet string
	cache        *lru.Cache
}

func NewSheetResolver(gateway ledger.Gateway, poolsSheet, changesSheet string) *SheetResolver {
	if gateway == nil {
		panic("ledger gateway cannot be nil")
	}
	cache, _ := lru.New(snapshotCacheSize)
	return &SheetResolver{
		gateway:      gateway,
		poolsSheet:   poolsSheet,
		changesSheet: changesSheet,
		cache:        cache,
	}
}

func (r *SheetResolver) CurrentPool(ctx context.Context, playerName string) (*Pool, error) {
	poolID, err := r.currentPoolID(ctx, playerName)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, poolID)
}

func (r *SheetResolver) currentPoolID(ctx context.Context, playerName string) (string, error) {
	rows, err := r.gateway.ReadRows(ctx, r.changesSheet)
	if err != nil {
		return "", fmt.Errorf("failed to read pool change ledger: %w", err)
	}

	// The ledger is append-only, so the newest snapshot reference for a player
	// is the bottom-most row carrying a pool id.
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if !strings.EqualFold(strings.TrimSpace(row.Cell(ColPlayer-1)), playerName) {
			continue
		}
		if id := strings.TrimSpace(row.Cell(ColPoolID - 1)); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("no pool recorded for %s", playerName)
}

func (r *SheetResolver) fetch(ctx context.Context, poolID string) (*Pool, error) {
	if cached, ok := r.cache.Get(poolID); ok {
		return cached.(*Pool).Clone(), nil
	}

	rows, err := r.gateway.ReadRows(ctx, r.poolsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool snapshots: %w", err)
	}

	for _, row := range rows {
		if strings.TrimSpace(row.Cell(snapColID-1)) != poolID {
			continue
		}
		p, err := Parse(row.Cell(snapColContents - 1))
		if err != nil {
			return nil, fmt.Errorf("pool %s is malformed: %w", poolID, err)
		}
		r.cache.Add(poolID, p.Clone())
		return p, nil
	}
	return nil, fmt.Errorf("pool %s not found in snapshot sheet", poolID)
}

func (r *SheetResolver) Materialize(ctx context.Context, playerName string, p *Pool) (string, error) {
	poolID := p.ID()
	row := ledger.Row{poolID, playerName, p.Serialize()}

	if err := r.gateway.AppendRows(ctx, r.poolsSheet, []ledger.Row{row}); err != nil {
		return "", fmt.Errorf("failed to materialize pool for %s: %w", playerName, err)
	}

	r.cache.Add(poolID, p.Clone())

	slog.Debug("Materialized pool snapshot",
		slog.String("type", "ledger"),
		slog.String("player", playerName),
		slog.String("pool_id", poolID),
		slog.Int("cards", p.Size()))
	return poolID, nil
}

// WarmCache resolves current pools for the given players concurrently, priming
// the snapshot cache before the serialized trade loop starts. Errors are logged
// per player and do not abort the warm-up.
func (r *SheetResolver) WarmCache(ctx context.Context, playerNames []string) {
	start := time.Now()
	sem := semaphore.NewWeighted(warmConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	for _, name := range playerNames {
		name := name
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			if _, err := r.CurrentPool(gctx, name); err != nil {
				slog.Warn("Pool warm-up skipped player",
					slog.String("type", "ledger"),
					slog.String("player", name),
					slog.Any("error", err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Warn("Pool warm-up aborted", slog.String("type", "ledger"), slog.Any("error", err))
		return
	}

	slog.Info("Pool snapshot cache warmed",
		slog.String("type", "ledger"),
		slog.Int("players", len(playerNames)),
		slog.Duration("took", time.Since(start)))
}
