// Package brew runs a single beverage from reservation to completion.
package brew

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"brewz"
	"brewz/internal/clock"
	"brewz/internal/telemetry"
)

const DefaultPoll = 1 * time.Second

// Reserver takes a recipe's ingredients out of stock, all or nothing.
type Reserver interface {
	TryReserve(recipe brewz.Recipe) (brewz.Shortage, bool)
}

// Outlets hands out brewing slots.
type Outlets interface {
	Acquire(ctx context.Context) error
	Release()
}

// Journal stores brew results.
type Journal interface {
	Record(ctx context.Context, r brewz.BrewResult) error
}

// Worker brews beverages. One Worker is shared by every brew goroutine of a
// machine; Brew holds no per-call state on the Worker.
type Worker struct {
	Inventory Reserver
	Outlets   Outlets
	Clock     clock.Clock   // defaults to clock.Real
	Poll      time.Duration // shutdown check granularity while brewing; defaults to DefaultPoll
	Tracer    trace.Tracer  // optional
	Journal   Journal       // optional
	OnResult  func(brewz.BrewResult)
}

func (w *Worker) getClock() clock.Clock {
	if w.Clock != nil {
		return w.Clock
	}
	return clock.Real{}
}

func (w *Worker) getPoll() time.Duration {
	if w.Poll > 0 {
		return w.Poll
	}
	return DefaultPoll
}

var errShortage = errors.New("insufficient ingredients")

// Brew reserves the beverage's ingredients, takes an outlet, waits out the
// prep time and releases the outlet. Cancelling ctx aborts the brew. An
// ingredient shortage skips the beverage without taking an outlet.
func (w *Worker) Brew(ctx context.Context, b brewz.Beverage) brewz.BrewResult {
	clk := w.getClock()
	res := brewz.BrewResult{
		ID:        uuid.NewString(),
		Beverage:  b.Name(),
		StartedAt: clk.Now(),
	}
	log := slog.With("component", "brew-worker", "beverage", b.Name(), "brew_id", res.ID)
	op := telemetry.Start(ctx, w.Tracer, "brew "+b.Name(),
		attribute.String("brewz.beverage", b.Name()),
		attribute.String("brewz.brew_id", res.ID),
		attribute.Int64("brewz.prep_ms", b.PrepTime().Milliseconds()),
	)

	log.Info("Brewing beverage.")
	err := w.brew(op, log, b, &res)

	res.FinishedAt = clk.Now()
	op.SetAttributes(attribute.String("brewz.outcome", res.Outcome.String()))
	if errors.Is(err, errShortage) {
		err = nil
	}
	op.End(err)

	w.finish(ctx, log, res)
	return res
}

func (w *Worker) brew(op *telemetry.Operation, log *slog.Logger, b brewz.Beverage, res *brewz.BrewResult) error {
	ctx := op.Context()

	err := op.RunStep(ctx, "reserve", func(context.Context) error {
		if short, ok := w.Inventory.TryReserve(b.Recipe()); !ok {
			res.Shortage = &short
			return fmt.Errorf("%w: %s", errShortage, short)
		}
		return nil
	})
	if err != nil {
		res.Outcome = brewz.OutcomeSkipped
		log.Warn("Skipping beverage.", "shortage", res.Shortage.String())
		return err
	}
	op.Event("ingredients.reserved")

	if err := op.RunStep(ctx, "acquire_outlet", w.Outlets.Acquire); err != nil {
		res.Outcome = brewz.OutcomeAborted
		res.Err = brewz.ErrMachineStopped
		log.Error("Brewing failed while waiting for an outlet.", "err", err)
		return brewz.ErrMachineStopped
	}
	defer w.Outlets.Release()
	op.Event("outlet.acquired")
	log.Info("Started brewing.", "prep_time", b.PrepTime())

	err = op.RunStep(ctx, "prepare", func(stepCtx context.Context) error {
		if !clock.SleepPolled(stepCtx, w.getClock(), b.PrepTime(), w.getPoll()) {
			return brewz.ErrMachineStopped
		}
		return nil
	})
	if err != nil {
		res.Outcome = brewz.OutcomeAborted
		res.Err = err
		log.Error("Brewing failed.", "err", err)
		return err
	}

	res.Outcome = brewz.OutcomeBrewed
	log.Info("Beverage brewed successfully.")
	return nil
}

func (w *Worker) finish(ctx context.Context, log *slog.Logger, res brewz.BrewResult) {
	if w.Journal != nil {
		// The machine context may already be cancelled; the record still belongs in the journal.
		if err := w.Journal.Record(context.WithoutCancel(ctx), res); err != nil {
			log.Error("Failed to record brew.", "err", err)
		}
	}
	if w.OnResult != nil {
		w.OnResult(res)
	}
}
