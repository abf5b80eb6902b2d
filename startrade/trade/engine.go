package trade

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hyeseon-dev/startrade/startrade/directory"
	"github.com/hyeseon-dev/startrade/startrade/ledger"
	"github.com/hyeseon-dev/startrade/startrade/logger"
	"github.com/hyeseon-dev/startrade/startrade/notify"
	"github.com/hyeseon-dev/startrade/startrade/pool"
)

// Sheets names the ledger ranges the engine operates on.
type Sheets struct {
	Requests string `toml:"requests"`
	Changes  string `toml:"changes"`
	Pools    string `toml:"pools"`
	Roster   string `toml:"roster"`
}

// Engine coordinates the whole negotiation protocol. Every trade-affecting
// operation (recovery, request scan, response handling) runs under one
// process-wide lock, held across ledger and notifier I/O: the sheet has no
// transactions, so two interleaved read-then-write operations on the same row
// would corrupt it. Parallelism is traded away for correctness.
type Engine struct {
	gateway    ledger.Gateway
	directory  directory.Directory
	resolver   pool.Resolver
	notifier   notify.Notifier
	validator  *Validator
	executor   *Executor
	registry   *Registry
	sheets     Sheets
	operatorID string

	// mu is the global trade lock.
	mu sync.Mutex

	// lastTradeID backs the monotonic id allocator; guarded by mu.
	lastTradeID uint64

	// Single-flight state for the request scan: at most one scan in flight,
	// late arrivals flip rerun and the running scan loops once more.
	sfMu     sync.Mutex
	scanning bool
	rerun    bool
}

func NewEngine(
	gateway ledger.Gateway,
	dir directory.Directory,
	resolver pool.Resolver,
	notifier notify.Notifier,
	sheets Sheets,
	operatorID string,
) *Engine {
	if gateway == nil {
		panic("ledger gateway cannot be nil")
	}
	if dir == nil {
		panic("player directory cannot be nil")
	}
	if resolver == nil {
		panic("pool resolver cannot be nil")
	}
	if notifier == nil {
		panic("notifier cannot be nil")
	}

	return &Engine{
		gateway:    gateway,
		directory:  dir,
		resolver:   resolver,
		notifier:   notifier,
		validator:  NewValidator(gateway, resolver, sheets.Requests),
		executor:   NewExecutor(gateway, resolver, sheets.Changes),
		registry:   NewRegistry(),
		sheets:     sheets,
		operatorID: operatorID,
	}
}

// Registry exposes the live-offer set for read-only listings.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// requestCell addresses one cell of the request sheet.
func (e *Engine) requestCell(rowNum, col int) ledger.CellRef {
	return ledger.Ref(e.sheets.Requests, rowNum, col)
}

// reportIntegrityFailure logs a data-integrity failure and sends a best-effort
// notice to the operator. The offending row is never touched.
func (e *Engine) reportIntegrityFailure(ctx context.Context, where string, err error) {
	logger.LogError("Data-integrity failure", err, slog.String("where", where))

	if e.operatorID == "" {
		return
	}
	_, notifyErr := e.notifier.Notify(ctx, e.operatorID, notify.Payload{
		Title:  "Trade data needs manual repair",
		Body:   fmt.Sprintf("%s: %v", where, err),
		Accent: notify.AccentWarning,
	})
	if notifyErr != nil {
		logger.LogError("Failed to notify operator", notifyErr, slog.String("where", where))
	}
}
