package vm

import "sync"

// group is a cancellation group: every task spawned while a group is active
// shares the same receiver, and Stop broadcasts to every member at once by
// closing the channel (spec §5, "Cancellation groups"). SceneContext installs
// a fresh group for the task that runs it, which is how a scene's own Stop
// leaves tasks outside that scene untouched: they simply hold a different
// *group pointer.
type group struct {
	once sync.Once
	ch   chan struct{}
}

func newGroup() *group {
	return &group{ch: make(chan struct{})}
}

// cancel broadcasts to every task holding this group. Safe to call more
// than once or concurrently; only the first call has any effect.
func (g *group) cancel() {
	g.once.Do(func() { close(g.ch) })
}

// done is the receiver half every task selects on.
func (g *group) done() <-chan struct{} {
	return g.ch
}
