// Package providerpool routes history lookups across multiple
// history.ContentProvider replicas (e.g. recent runs on local disk,
// archived runs in S3).
package providerpool

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/wod-wiki/wodwiki/history"
)

// Strategy selects how a replica is chosen for a given entry id.
type Strategy string

const (
	RoundRobin Strategy = "round_robin"
	Random     Strategy = "random"
	Sticky     Strategy = "sticky"
)

// Replica is one named backend in the pool.
type Replica struct {
	Name     string
	Provider history.ContentProvider
}

// StickyConfig configures sticky routing.
type StickyConfig struct {
	// TTL expires a sticky assignment after the given duration. Zero means
	// the assignment never expires.
	TTL time.Duration
	// RecencyWindow, when set, excludes the last N replicas chosen for new
	// (non-sticky) assignments from random selection, spreading load across
	// replicas instead of repeatedly picking the same one.
	RecencyWindow int
}

type stickyEntry struct {
	replicaIdx int
	expiresAt  *time.Time
}

// Pool selects a history.ContentProvider replica per entry id.
// Thread-safe for concurrent access.
type Pool struct {
	mu       sync.Mutex
	replicas []Replica
	strategy Strategy
	sticky   *StickyConfig

	rrIndex   int64
	stickyMap map[string]*stickyEntry

	recencyRing []int
	recencyPos  int
	recencyLen  int
}

// NewPool creates a pool of replicas routed by strategy.
// sticky may be nil unless strategy is Sticky.
func NewPool(strategy Strategy, replicas []Replica, sticky *StickyConfig) (*Pool, error) {
	if len(replicas) == 0 {
		return nil, errors.New("providerpool: at least one replica is required")
	}
	switch strategy {
	case RoundRobin, Random, Sticky:
	default:
		return nil, fmt.Errorf("providerpool: unknown strategy %q", strategy)
	}

	p := &Pool{
		replicas:  replicas,
		strategy:  strategy,
		sticky:    sticky,
		stickyMap: make(map[string]*stickyEntry),
	}

	if sticky != nil && sticky.RecencyWindow > 0 {
		p.recencyRing = make([]int, sticky.RecencyWindow)
		for i := range p.recencyRing {
			p.recencyRing[i] = -1
		}
	}

	return p, nil
}

// Select returns the replica that should service the given entry id.
// entryID is used as the sticky key when the pool strategy is Sticky.
func (p *Pool) Select(entryID string) (history.ContentProvider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var idx int
	var err error

	switch p.strategy {
	case RoundRobin:
		idx = p.selectRoundRobin()
	case Random:
		idx, err = p.selectRandom()
	case Sticky:
		idx, err = p.selectSticky(entryID)
	default:
		return nil, fmt.Errorf("providerpool: unknown strategy %q", p.strategy)
	}
	if err != nil {
		return nil, err
	}

	return p.replicas[idx].Provider, nil
}

func (p *Pool) selectRoundRobin() int {
	idx := int(p.rrIndex % int64(len(p.replicas)))
	p.rrIndex++
	return idx
}

func (p *Pool) selectRandom() (int, error) {
	n := len(p.replicas)
	if n == 1 {
		return 0, nil
	}

	if p.recencyRing == nil {
		return p.randInt(n)
	}

	excluded := make(map[int]bool, p.recencyLen)
	for i := range p.recencyLen {
		if idx := p.recencyRing[i]; idx >= 0 {
			excluded[idx] = true
		}
	}

	candidates := make([]int, 0, n-len(excluded))
	for i := range n {
		if !excluded[i] {
			candidates = append(candidates, i)
		}
	}

	var selectedIdx int
	if len(candidates) == 0 {
		selectedIdx = p.recencyRing[p.recencyPos]
	} else {
		ci, err := p.randInt(len(candidates))
		if err != nil {
			return 0, err
		}
		selectedIdx = candidates[ci]
	}

	p.recencyRing[p.recencyPos] = selectedIdx
	p.recencyPos = (p.recencyPos + 1) % len(p.recencyRing)
	if p.recencyLen < len(p.recencyRing) {
		p.recencyLen++
	}

	return selectedIdx, nil
}

func (p *Pool) randInt(n int) (int, error) {
	bigIdx, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("providerpool: random selection failed: %w", err)
	}
	return int(bigIdx.Int64()), nil
}

func (p *Pool) selectSticky(entryID string) (int, error) {
	if entryID == "" {
		return 0, errors.New("providerpool: sticky selection requires a non-empty entry id")
	}

	now := time.Now()

	if entry, ok := p.stickyMap[entryID]; ok {
		if entry.expiresAt == nil || entry.expiresAt.After(now) {
			return entry.replicaIdx, nil
		}
		delete(p.stickyMap, entryID)
	}

	idx, err := p.selectRandom()
	if err != nil {
		return 0, err
	}

	entry := &stickyEntry{replicaIdx: idx}
	if p.sticky != nil && p.sticky.TTL > 0 {
		expiresAt := now.Add(p.sticky.TTL)
		entry.expiresAt = &expiresAt
	}
	p.stickyMap[entryID] = entry

	return idx, nil
}

// Stats reports pool routing state, useful for debugging replica skew.
type Stats struct {
	RoundRobinIndex int64
	StickyEntries   int
	RecencyWindow   int
	RecencyFill     int
}

// Stats returns the pool's current routing statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{
		RoundRobinIndex: p.rrIndex,
		StickyEntries:   len(p.stickyMap),
	}
	if p.recencyRing != nil {
		stats.RecencyWindow = len(p.recencyRing)
		stats.RecencyFill = p.recencyLen
	}
	return stats
}

// CleanExpiredSticky removes expired sticky assignments. Call periodically
// in long-lived processes to bound stickyMap growth.
func (p *Pool) CleanExpiredSticky() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for key, entry := range p.stickyMap {
		if entry.expiresAt != nil && entry.expiresAt.Before(now) {
			delete(p.stickyMap, key)
		}
	}
}
