package object

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/obstore/internal/db"
	"github.com/kailas-cloud/obstore/internal/metrics"
)

// Migration states.
const (
	StateNotMigrated = "not_migrated"
	StateMigrating   = "migrating"
	StateMigrated    = "migrated"
)

const (
	eventStart = "start"
	eventDone  = "done"
	eventFail  = "fail"
)

// indexStore is the subset of the store the migration drives.
type indexStore interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DropIndex(ctx context.Context, name string) error
	Reindex(ctx context.Context, source, dest string) (int, error)
}

// migrator brings the store to "index exists, legacy index absent" once per
// process. Other nodes may race on the same indexes; "already exists" and
// "not found" replies from the store count as progress, not failure.
type migrator struct {
	store  indexStore
	index  string
	legacy string
	def    *db.IndexDefinition
	logger *zap.Logger
	// timeout bounds one migration run, independent of the caller that started it.
	timeout time.Duration

	machine *fsm.FSM
	group   singleflight.Group
}

func newMigrator(
	s indexStore, def *db.IndexDefinition, legacy string, timeout time.Duration, logger *zap.Logger,
) *migrator {
	m := &migrator{
		store:   s,
		index:   def.Name,
		legacy:  legacy,
		def:     def,
		logger:  logger,
		timeout: timeout,
	}
	m.machine = fsm.NewFSM(
		StateNotMigrated,
		fsm.Events{
			{Name: eventStart, Src: []string{StateNotMigrated}, Dst: StateMigrating},
			{Name: eventDone, Src: []string{StateMigrating}, Dst: StateMigrated},
			{Name: eventFail, Src: []string{StateMigrating}, Dst: StateNotMigrated},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.logger.Debug("index migration state",
					zap.String("from", e.Src),
					zap.String("to", e.Dst),
					zap.String("index", m.index),
				)
			},
		},
	)
	return m
}

// State returns the current migration state.
func (m *migrator) State() string {
	return m.machine.Current()
}

// ensure runs the migration unless it already completed. Concurrent callers
// share one run. The run is detached from ctx so a caller that gives up does
// not fail the others; each caller still stops waiting when its own ctx ends.
func (m *migrator) ensure(ctx context.Context) error {
	if m.machine.Is(StateMigrated) {
		return nil
	}
	ch := m.group.DoChan(m.index, func() (any, error) {
		if m.machine.Is(StateMigrated) {
			return nil, nil
		}
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return nil, m.run(runCtx)
	})
	select {
	case res := <-ch:
		return res.Err //nolint:wrapcheck // wrapped by run
	case <-ctx.Done():
		return fmt.Errorf("wait for index migration: %w", ctx.Err())
	}
}

func (m *migrator) run(ctx context.Context) error {
	if err := m.machine.Event(ctx, eventStart); err != nil {
		return fmt.Errorf("start migration: %w", err)
	}

	if err := m.migrate(ctx); err != nil {
		if ferr := m.machine.Event(ctx, eventFail); ferr != nil {
			m.logger.Error("migration state reset failed", zap.Error(ferr))
		}
		metrics.IndexMigrationsTotal.WithLabelValues("failed").Inc()
		return err
	}

	if err := m.machine.Event(ctx, eventDone); err != nil {
		return fmt.Errorf("finish migration: %w", err)
	}
	metrics.IndexMigrationsTotal.WithLabelValues("migrated").Inc()
	return nil
}

func (m *migrator) migrate(ctx context.Context) error {
	exists, err := m.store.IndexExists(ctx, m.index)
	if err != nil {
		return fmt.Errorf("check index %s: %w", m.index, err)
	}

	legacyExists := false
	if m.legacy != "" && m.legacy != m.index {
		legacyExists, err = m.store.IndexExists(ctx, m.legacy)
		if err != nil {
			return fmt.Errorf("check legacy index %s: %w", m.legacy, err)
		}
	}

	if !exists {
		if err := m.store.CreateIndex(ctx, m.def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", m.index, err)
		}
		m.logger.Info("index created", zap.String("index", m.index))
	}

	if !legacyExists {
		return nil
	}

	copied, err := m.store.Reindex(ctx, m.legacy, m.index)
	if err != nil {
		return fmt.Errorf("reindex %s into %s: %w", m.legacy, m.index, err)
	}
	metrics.ReindexedDocumentsTotal.Add(float64(copied))

	if err := m.store.DropIndex(ctx, m.legacy); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop legacy index %s: %w", m.legacy, err)
	}

	m.logger.Info("legacy index migrated",
		zap.String("from", m.legacy),
		zap.String("to", m.index),
		zap.Int("documents", copied),
	)
	return nil
}
