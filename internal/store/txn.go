package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"famcal/internal/logging"
)

type opKind int

const (
	opWrite opKind = iota
	opDelete
)

// fileOp is one queued filesystem mutation together with the pre-image of
// its target, captured at queue time.
type fileOp struct {
	kind opKind
	path string
	data []byte

	preImage   []byte
	preExisted bool
}

// Transaction queues file writes and deletes and applies them in order on
// Commit. The first apply failure rolls every touched path back to its
// pre-image, in reverse order, and the commit error is returned.
//
// Atomicity holds within one Commit call only: there is no write-ahead log,
// so a process crash mid-commit can leave partial state. Rollback protects
// against errors surfaced inside the same call, not crashes. Serializing
// concurrent transactions over the same paths is the caller's job.
type Transaction struct {
	ops []fileOp
	log logging.Logger
}

// NewTransaction starts an empty transaction.
func NewTransaction(log logging.Logger) *Transaction {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Transaction{log: log}
}

// Write queues data to be written to path and snapshots the path's current
// state immediately.
func (t *Transaction) Write(path string, data []byte) error {
	op := fileOp{kind: opWrite, path: path, data: data}
	if err := t.snapshot(&op); err != nil {
		return err
	}
	t.ops = append(t.ops, op)
	return nil
}

// Delete queues removal of path and snapshots its current state immediately.
func (t *Transaction) Delete(path string) error {
	op := fileOp{kind: opDelete, path: path}
	if err := t.snapshot(&op); err != nil {
		return err
	}
	t.ops = append(t.ops, op)
	return nil
}

func (t *Transaction) snapshot(op *fileOp) error {
	data, err := os.ReadFile(op.path)
	switch {
	case err == nil:
		op.preImage = data
		op.preExisted = true
	case os.IsNotExist(err):
		op.preExisted = false
	default:
		return fmt.Errorf("capturing pre-image of %s: %w", op.path, err)
	}
	return nil
}

// Len reports the number of queued operations.
func (t *Transaction) Len() int { return len(t.ops) }

// Commit applies the queued operations strictly in order. On the first
// failure it rolls back every already-applied operation and returns the
// commit error with the failing path attached.
func (t *Transaction) Commit(ctx context.Context) error {
	for i, op := range t.ops {
		if err := t.apply(op); err != nil {
			t.rollback(ctx, i)
			return fmt.Errorf("commit failed at %s: %w", op.path, err)
		}
	}
	t.ops = nil
	return nil
}

func (t *Transaction) apply(op fileOp) error {
	switch op.kind {
	case opWrite:
		if err := os.MkdirAll(filepath.Dir(op.path), 0o700); err != nil {
			return err
		}
		return os.WriteFile(op.path, op.data, 0o600)
	case opDelete:
		if err := os.Remove(op.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown operation kind %d", op.kind)
	}
}

// rollback restores the pre-images of ops[0:applied] in reverse order.
// Failures of individual rollback steps are logged, not raised, so every
// remaining path still gets its restore attempt.
func (t *Transaction) rollback(ctx context.Context, applied int) {
	for i := applied - 1; i >= 0; i-- {
		op := t.ops[i]
		if err := t.restore(op); err != nil {
			t.log.Error(ctx, "rollback step failed", "path", op.path, "err", err)
		}
	}
}

func (t *Transaction) restore(op fileOp) error {
	if !op.preExisted {
		if err := os.Remove(op.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(op.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(op.path, op.preImage, 0o600)
}
