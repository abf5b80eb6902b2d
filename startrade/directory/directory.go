// Package directory resolves league players from the roster sheet: identity,
// display name, star balances and opponent history. The trade engine treats all
// of it as read-only.
package directory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyeseon-dev/startrade/startrade/ledger"
)

// Roster sheet columns (1-based).
const (
	colName     = 1
	colUserID   = 2
	colSilver   = 3
	colGold     = 4
	colOpponent = 5
)

type Player struct {
	ID          string
	Name        string
	SilverStars int
	GoldStars   int
	// Opponents holds the ids of everyone this player has already played, in
	// the order the league recorded them.
	Opponents []string
}

// HasPlayed reports whether the player has already faced the given opponent.
func (p *Player) HasPlayed(opponentID string) bool {
	for _, id := range p.Opponents {
		if id == opponentID {
			return true
		}
	}
	return false
}

type Directory interface {
	ByName(ctx context.Context, name string) (*Player, error)
	ByID(ctx context.Context, id string) (*Player, error)
}

// SheetDirectory reads the roster sheet on every lookup. The sheet is the
// source of truth for balances and history, and both change between trades, so
// nothing here is cached.
type SheetDirectory struct {
	gateway ledger.Gateway
	sheet   string
}

func NewSheetDirectory(gateway ledger.Gateway, sheet string) *SheetDirectory {
	if gateway == nil {
		panic("ledger gateway cannot be nil")
	}
	return &SheetDirectory{gateway: gateway, sheet: sheet}
}

func (d *SheetDirectory) ByName(ctx context.Context, name string) (*Player, error) {
	return d.find(ctx, func(p *Player) bool {
		return strings.EqualFold(p.Name, name)
	}, fmt.Sprintf("no player named %q", name))
}

func (d *SheetDirectory) ByID(ctx context.Context, id string) (*Player, error) {
	return d.find(ctx, func(p *Player) bool {
		return p.ID == id
	}, fmt.Sprintf("no player with id %s", id))
}

// All returns every parseable roster entry, used to prime caches at startup.
func (d *SheetDirectory) All(ctx context.Context) ([]*Player, error) {
	rows, err := d.gateway.ReadRows(ctx, d.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	players := make([]*Player, 0, len(rows))
	for _, row := range rows {
		if player := parsePlayer(row); player != nil {
			players = append(players, player)
		}
	}
	return players, nil
}

func (d *SheetDirectory) find(ctx context.Context, match func(*Player) bool, missing string) (*Player, error) {
	rows, err := d.gateway.ReadRows(ctx, d.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	for _, row := range rows {
		player := parsePlayer(row)
		if player == nil {
			continue
		}
		if match(player) {
			return player, nil
		}
	}
	return nil, fmt.Errorf("%s", missing)
}

func parsePlayer(row ledger.Row) *Player {
	name := strings.TrimSpace(row.Cell(colName - 1))
	id := strings.TrimSpace(row.Cell(colUserID - 1))
	if name == "" || id == "" {
		return nil
	}

	player := &Player{
		ID:          id,
		Name:        name,
		SilverStars: parseCount(row.Cell(colSilver - 1)),
		GoldStars:   parseCount(row.Cell(colGold - 1)),
	}

	for _, opp := range strings.Split(row.Cell(colOpponent-1), ",") {
		if opp = strings.TrimSpace(opp); opp != "" {
			player.Opponents = append(player.Opponents, opp)
		}
	}
	return player
}

func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
