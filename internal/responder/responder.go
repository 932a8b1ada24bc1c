// Package responder implements the balance-triggered auto-responder: it
// watches an account's balance and answers net incoming increments with a
// fixed schedule of reply payments to a known counterparty.
package responder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"freeswap/pkg/logger"
)

// BalanceFunc observes the spendable balance of the watched asset, in coins.
type BalanceFunc func(ctx context.Context) (decimal.Decimal, error)

// SendFunc dispatches one reply chunk to the counterparty.
type SendFunc func(ctx context.Context, amount decimal.Decimal) error

// Reason says why a run ended.
type Reason string

const (
	ReasonCapReached        Reason = "cap_reached"
	ReasonScheduleExhausted Reason = "schedule_exhausted"
	ReasonCancelled         Reason = "cancelled"
)

// Config drives one responder run.
type Config struct {
	// Counterparty is the expected sender; every reply chunk goes there.
	Counterparty string
	// MaxReceive caps the cumulative net amount accepted before stopping.
	MaxReceive decimal.Decimal
	// MaxRespond is the total amount the reply schedule pays out.
	MaxRespond decimal.Decimal
	// Chunks is the number of reply payments MaxRespond is split into.
	Chunks int
	// Precision is the decimal rounding applied to each chunk.
	Precision int32
	// PollInterval paces the balance polling loop.
	PollInterval time.Duration
}

// Summary reports the final state of a run.
type Summary struct {
	StartingBalance decimal.Decimal
	TotalReceived   decimal.Decimal
	TotalResponded  decimal.Decimal
	ChunksSent      int
	Reason          Reason
}

// Responder is a single-account, single-loop state machine. It is not safe
// for concurrent Run calls.
type Responder struct {
	cfg      Config
	balance  BalanceFunc
	send     SendFunc
	schedule []decimal.Decimal
	logger   logger.Logger
}

func New(cfg Config, balance BalanceFunc, send SendFunc, log logger.Logger) (*Responder, error) {
	schedule, err := BuildSchedule(cfg.MaxRespond, cfg.Chunks, cfg.Precision)
	if err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Responder{
		cfg:      cfg,
		balance:  balance,
		send:     send,
		schedule: schedule,
		logger:   log,
	}, nil
}

// Schedule returns the reply chunks in dispatch order.
func (r *Responder) Schedule() []decimal.Decimal {
	out := make([]decimal.Decimal, len(r.schedule))
	copy(out, r.schedule)
	return out
}

// Run polls the balance until the receive cap is hit or the schedule is
// exhausted. The baseline is the first observed balance; each cycle computes
//
//	net = current − (baseline + totalReceived − totalResponded)
//
// so the responder's own outgoing chunks do not mask genuine receipts. A
// positive net accrues and triggers the next unsent chunk. A failed dispatch
// keeps the chunk index in place: the same chunk is retried on the next
// qualifying cycle rather than skipped.
func (r *Responder) Run(ctx context.Context) (*Summary, error) {
	baseline, err := r.balance(ctx)
	if err != nil {
		return nil, err
	}

	state := &Summary{
		StartingBalance: baseline,
		TotalReceived:   decimal.Zero,
		TotalResponded:  decimal.Zero,
	}

	r.logger.Info("Responder started", map[string]interface{}{
		"counterparty":     r.cfg.Counterparty,
		"starting_balance": baseline.String(),
		"max_receive":      r.cfg.MaxReceive.String(),
		"max_respond":      r.cfg.MaxRespond.String(),
		"chunks":           len(r.schedule),
	})

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			state.Reason = ReasonCancelled
			return state, ctx.Err()
		case <-ticker.C:
		}

		current, err := r.balance(ctx)
		if err != nil {
			r.logger.Warn("Balance poll failed", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		expected := baseline.Add(state.TotalReceived).Sub(state.TotalResponded)
		net := current.Sub(expected)
		if net.Sign() <= 0 {
			continue
		}

		state.TotalReceived = state.TotalReceived.Add(net)
		r.logger.Info("Net increment received", map[string]interface{}{
			"counterparty":   r.cfg.Counterparty,
			"net":            net.String(),
			"total_received": state.TotalReceived.String(),
		})

		chunk := r.schedule[state.ChunksSent]
		if err := r.send(ctx, chunk); err != nil {
			// Retry this chunk on the next qualifying cycle.
			r.logger.Error("Chunk dispatch failed", map[string]interface{}{
				"chunk_index": state.ChunksSent,
				"amount":      chunk.String(),
				"error":       err.Error(),
			})
		} else {
			state.TotalResponded = state.TotalResponded.Add(chunk)
			state.ChunksSent++
			r.logger.Info("Chunk dispatched", map[string]interface{}{
				"chunk_index":     state.ChunksSent - 1,
				"amount":          chunk.String(),
				"total_responded": state.TotalResponded.String(),
			})
		}

		if state.TotalReceived.Cmp(r.cfg.MaxReceive) >= 0 {
			state.Reason = ReasonCapReached
			r.logger.Info("Receive cap reached", map[string]interface{}{
				"total_received":  state.TotalReceived.String(),
				"total_responded": state.TotalResponded.String(),
			})
			return state, nil
		}
		if state.ChunksSent == len(r.schedule) {
			state.Reason = ReasonScheduleExhausted
			r.logger.Info("Reply schedule exhausted", map[string]interface{}{
				"total_received":  state.TotalReceived.String(),
				"total_responded": state.TotalResponded.String(),
			})
			return state, nil
		}
	}
}
