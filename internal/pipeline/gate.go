package pipeline

import (
	"sync"
	"time"
)

// Gate is the post-unlock cooldown.
//
// State machine: Open -(Block)-> Blocked{expiresAt} -(timer)-> Open.
// Only the dispatcher's success path (Block) and the gate's own expiry timer
// write the state; the sampler and the scheduler only read it. Admission
// compares frame timestamps with expiresAt, before and after expiry alike.
type Gate struct {
	blockTime time.Duration

	mu        sync.Mutex
	blocked   bool
	expiresAt time.Time
	timer     *time.Timer
	gen       uint64
}

// NewGate creates an Open gate that blocks for blockTime after each Block.
func NewGate(blockTime time.Duration) *Gate {
	return &Gate{blockTime: blockTime}
}

// Admit reports whether a frame captured at `at` may proceed.
// Frames stamped inside the last block window stay rejected after the timer
// reopened the gate. A gate that never blocked has a zero expiresAt.
func (g *Gate) Admit(at time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !at.Before(g.expiresAt)
}

// Block enters the Blocked state at `at` and (re)starts the expiry timer.
func (g *Gate) Block(at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
	}
	g.gen++
	gen := g.gen
	g.blocked = true
	g.expiresAt = at.Add(g.blockTime)
	g.timer = time.AfterFunc(g.blockTime, func() { g.expire(gen) })
}

// expire reopens the gate unless a newer Block superseded this timer.
func (g *Gate) expire(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return
	}
	g.blocked = false
	g.timer = nil
}

// Blocked returns whether the gate is blocked and until when.
func (g *Gate) Blocked() (bool, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blocked, g.expiresAt
}

// Stop cancels a pending expiry timer.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
	}
}
