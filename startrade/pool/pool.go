// Package pool models a player's card pool: an immutable, content-addressed
// multiset of card names. Pools are never edited in place; every trade
// materializes two new ones.
package pool

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Entry is one card line of a pool.
type Entry struct {
	Name  string
	Count int
}

type Pool struct {
	entries []Entry
}

func New(entries ...Entry) *Pool {
	p := &Pool{}
	for _, e := range entries {
		for i := 0; i < e.Count; i++ {
			p.Add(e.Name)
		}
	}
	return p
}

// NormalizeCard lowercases a card name and strips the trailing "// back face"
// segment of double-faced cards, so both faces compare equal.
func NormalizeCard(name string) string {
	if i := strings.Index(name, "//"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(strings.TrimSpace(name))
}

func (p *Pool) Entries() []Entry {
	return append([]Entry(nil), p.entries...)
}

// Names returns one entry per distinct card, display form, insertion order.
func (p *Pool) Names() []string {
	names := make([]string, len(p.entries))
	for i, e := range p.entries {
		names[i] = e.Name
	}
	return names
}

func (p *Pool) Contains(card string) bool {
	return p.indexOf(card) >= 0
}

func (p *Pool) indexOf(card string) int {
	want := NormalizeCard(card)
	for i, e := range p.entries {
		if NormalizeCard(e.Name) == want {
			return i
		}
	}
	return -1
}

// Add appends one copy of a card, keeping the first-seen display form.
func (p *Pool) Add(card string) {
	if i := p.indexOf(card); i >= 0 {
		p.entries[i].Count++
		return
	}
	p.entries = append(p.entries, Entry{Name: strings.TrimSpace(card), Count: 1})
}

// Remove takes exactly one copy of a card, dropping the line at zero.
func (p *Pool) Remove(card string) error {
	i := p.indexOf(card)
	if i < 0 {
		return fmt.Errorf("pool does not contain %q", card)
	}
	p.entries[i].Count--
	if p.entries[i].Count == 0 {
		p.entries = append(p.entries[:i], p.entries[i+1:]...)
	}
	return nil
}

// Clone returns an independent copy, the starting point for a trade delta.
func (p *Pool) Clone() *Pool {
	return &Pool{entries: append([]Entry(nil), p.entries...)}
}

func (p *Pool) Size() int {
	var n int
	for _, e := range p.entries {
		n += e.Count
	}
	return n
}

// ID derives the content address: a short hex digest of the canonical
// (sorted, normalized) serialization. Identical contents always produce the
// identical id, regardless of insertion order.
func (p *Pool) ID() string {
	lines := make([]string, len(p.entries))
	for i, e := range p.entries {
		lines[i] = fmt.Sprintf("%d|%s", e.Count, NormalizeCard(e.Name))
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])[:12]
}

// Serialize renders the pool for a single sheet cell, e.g.
// "Card A x2; Card B".
func (p *Pool) Serialize() string {
	parts := make([]string, len(p.entries))
	for i, e := range p.entries {
		if e.Count > 1 {
			parts[i] = fmt.Sprintf("%s x%d", e.Name, e.Count)
		} else {
			parts[i] = e.Name
		}
	}
	return strings.Join(parts, "; ")
}

// Parse is the inverse of Serialize.
func Parse(raw string) (*Pool, error) {
	p := &Pool{}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, count := part, 1
		if i := strings.LastIndex(part, " x"); i > 0 {
			if n, err := strconv.Atoi(part[i+2:]); err == nil && n > 0 {
				name, count = strings.TrimSpace(part[:i]), n
			}
		}
		if p.Contains(name) {
			return nil, fmt.Errorf("duplicate pool line for %q", name)
		}
		p.entries = append(p.entries, Entry{Name: name, Count: count})
	}
	return p, nil
}
