package migration

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dwellir/polkadot-node-manager/interfaces"
)

// Result is the structured outcome of a migration operation.
type Result struct {
	Plan    Plan   `json:"plan"`
	Applied bool   `json:"applied"`
	Message string `json:"message"`
}

// Engine orchestrates backend-to-backend state migrations. It assumes
// exclusive access to the data directory and key file; the external
// supervisor must have stopped the service, which is verified as a
// precondition but not enforced with locking.
type Engine struct {
	layout     interfaces.Layout
	supervisor interfaces.ServiceSupervisor
	log        *slog.Logger
}

// NewEngine creates a migration engine.
func NewEngine(layout interfaces.Layout, supervisor interfaces.ServiceSupervisor, log *slog.Logger) *Engine {
	return &Engine{layout: layout, supervisor: supervisor, log: log}
}

// MigrateData moves the chain-data directory to the other backend's
// expected path. With dryRun the computed plan is returned without any
// filesystem mutation. A copy failure leaves the source untouched and is
// safe to retry.
func (e *Engine) MigrateData(ctx context.Context, reverse, dryRun bool) (Result, error) {
	if err := e.requireStopped(ctx); err != nil {
		return Result{}, err
	}

	plan := ComputePlan(e.layout, reverse, dryRun)

	if empty, err := dirIsEmpty(plan.DataSource); err != nil {
		return Result{}, fmt.Errorf("%w: inspecting %s: %v", interfaces.ErrMigrationIO, plan.DataSource, err)
	} else if empty {
		return Result{}, fmt.Errorf("%w: source data directory %s is missing or empty",
			interfaces.ErrMigrationPrecondition, plan.DataSource)
	}
	if empty, err := dirIsEmpty(plan.DataDestination); err != nil {
		return Result{}, fmt.Errorf("%w: inspecting %s: %v", interfaces.ErrMigrationIO, plan.DataDestination, err)
	} else if !empty {
		return Result{}, fmt.Errorf("%w: destination data directory %s already contains data",
			interfaces.ErrMigrationPrecondition, plan.DataDestination)
	}

	if dryRun {
		e.log.Info("Dry run, no data migrated",
			slog.String("source", plan.DataSource),
			slog.String("destination", plan.DataDestination))
		return Result{Plan: plan, Message: "dry run, no data migrated"}, nil
	}

	if err := e.moveTree(plan.DataSource, plan.DataDestination); err != nil {
		return Result{}, err
	}

	e.log.Info("Data migration complete",
		slog.String("source", plan.DataSource),
		slog.String("destination", plan.DataDestination))
	return Result{Plan: plan, Applied: true, Message: "data migrated"}, nil
}

// MigrateNodeKey moves the network identity key to the other backend's
// path. The step is idempotent so it can run independently of data
// migration: a key already at the destination is a no-op success.
func (e *Engine) MigrateNodeKey(ctx context.Context, reverse, dryRun bool) (Result, error) {
	if err := e.requireStopped(ctx); err != nil {
		return Result{}, err
	}

	plan := ComputePlan(e.layout, reverse, dryRun)

	srcData, srcErr := os.ReadFile(plan.KeySource)
	dstData, dstErr := os.ReadFile(plan.KeyDestination)
	srcExists := srcErr == nil
	dstExists := dstErr == nil

	switch {
	case !srcExists && !dstExists:
		return Result{}, fmt.Errorf("%w: no node key found at %s",
			interfaces.ErrMigrationPrecondition, plan.KeySource)

	case !srcExists && dstExists:
		return Result{Plan: plan, Message: "node key already migrated"}, nil

	case srcExists && dstExists && !bytes.Equal(srcData, dstData):
		return Result{}, fmt.Errorf("%w: destination %s already contains a different node key",
			interfaces.ErrMigrationPrecondition, plan.KeyDestination)
	}

	if dryRun {
		e.log.Info("Dry run, node key not migrated",
			slog.String("source", plan.KeySource),
			slog.String("destination", plan.KeyDestination))
		return Result{Plan: plan, Message: "dry run, node key not migrated"}, nil
	}

	if !dstExists {
		if err := os.MkdirAll(filepath.Dir(plan.KeyDestination), 0o755); err != nil {
			return Result{}, fmt.Errorf("%w: %v", interfaces.ErrMigrationIO, err)
		}
		staged := plan.KeyDestination + ".migrating"
		if err := os.WriteFile(staged, srcData, 0o600); err != nil {
			os.Remove(staged)
			return Result{}, fmt.Errorf("%w: staging node key: %v", interfaces.ErrMigrationIO, err)
		}
		if err := os.Rename(staged, plan.KeyDestination); err != nil {
			os.Remove(staged)
			return Result{}, fmt.Errorf("%w: placing node key: %v", interfaces.ErrMigrationIO, err)
		}
	}
	if err := os.Remove(plan.KeySource); err != nil {
		return Result{}, fmt.Errorf("%w: removing migrated node key: %v", interfaces.ErrMigrationIO, err)
	}

	e.log.Info("Node key migration complete",
		slog.String("source", plan.KeySource),
		slog.String("destination", plan.KeyDestination))
	return Result{Plan: plan, Applied: true, Message: "node key migrated"}, nil
}

// requireStopped fails fatally when the external service is still active.
func (e *Engine) requireStopped(ctx context.Context) error {
	running, err := e.supervisor.Running(ctx)
	if err != nil {
		return fmt.Errorf("%w: checking service state: %v", interfaces.ErrMigrationPrecondition, err)
	}
	if running {
		return fmt.Errorf("%w: the node service is still running; stop it before migrating",
			interfaces.ErrMigrationPrecondition)
	}
	return nil
}

// moveTree migrates a directory with copy-then-swap: the tree is copied to
// a staging path beside the destination, renamed into place, and only then
// is the source removed. A failure at any point leaves the source intact.
func (e *Engine) moveTree(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrMigrationIO, err)
	}

	staging := dst + ".migrating"
	os.RemoveAll(staging)
	if err := copyTree(src, staging); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("%w: copying %s: %v", interfaces.ErrMigrationIO, src, err)
	}
	if err := os.Rename(staging, dst); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("%w: placing %s: %v", interfaces.ErrMigrationIO, dst, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("%w: removing migrated source %s: %v", interfaces.ErrMigrationIO, src, err)
	}
	return nil
}
