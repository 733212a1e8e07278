// Package engine defines the capability boundary the VM reaches the
// outside world through (spec §4.4), plus a concrete in-process broker
// implementation used by the REPL, CLI default run mode, and tests.
package engine

import (
	"context"
	"time"
)

// Engine is the VM's only window onto the outside world: print, wait,
// get(path), set(path, bytes). Implementations may buffer set and must
// honour ctx cancellation on wait and get.
type Engine interface {
	Print(ctx context.Context, text string) error
	Wait(ctx context.Context, d time.Duration) error
	Get(ctx context.Context, path string) ([]byte, error)
	Set(ctx context.Context, path string, payload []byte) error
}
