package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned by Acquire once the per-run call budget is spent.
var ErrBudgetExhausted = errors.New("llm request budget exhausted")

// Pacer blocks until the next call may proceed. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Limiter paces LLM calls and enforces an optional per-run budget.
type Limiter struct {
	mu       sync.Mutex
	pacer    Pacer
	maxCalls int
	calls    int
	denied   int
}

// New spaces calls at least delay apart. maxCalls <= 0 means unlimited.
func New(delay time.Duration, maxCalls int) *Limiter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return NewWithPacer(rate.NewLimiter(limit, 1), maxCalls)
}

func NewWithPacer(p Pacer, maxCalls int) *Limiter {
	return &Limiter{pacer: p, maxCalls: maxCalls}
}

// Acquire reserves one call from the budget and waits for the pacer.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if l.maxCalls > 0 && l.calls >= l.maxCalls {
		l.denied++
		l.mu.Unlock()
		return fmt.Errorf("%w (%d/%d)", ErrBudgetExhausted, l.calls, l.maxCalls)
	}
	l.calls++
	l.mu.Unlock()

	if l.pacer == nil {
		return nil
	}
	return l.pacer.Wait(ctx)
}

// Stats reports how a run used its budget.
type Stats struct {
	Calls  int `json:"calls"`
	Limit  int `json:"limit"`
	Denied int `json:"denied"`
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{Calls: l.calls, Limit: l.maxCalls, Denied: l.denied}
}
