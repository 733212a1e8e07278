// Package vm is the execution core: the stack-based bytecode interpreter,
// its cooperative task scheduler, and scoped cancellation (spec components
// "VM and Task" plus "Concurrency & resource model"). It reaches the
// outside world only through an engine.Engine.
package vm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scenescript/scenectl/engine"
	"github.com/scenescript/scenectl/opcodes"
	"github.com/scenescript/scenectl/values"
)

// VM drives every task spawned from a single Code against one Engine. A VM
// runs one program once; construct a fresh VM (via New) to run again.
type VM struct {
	code *opcodes.Code
	eng  engine.Engine

	nextID int64 // atomic, task ids

	pending int64 // atomic, outstanding (unfinished) tasks
	allDone chan struct{}

	shutdown     chan struct{}
	shutdownOnce sync.Once

	errMu sync.Mutex
	err   error
}

// New constructs a VM ready to run code against eng.
func New(code *opcodes.Code, eng engine.Engine) *VM {
	return &VM{
		code:     code,
		eng:      eng,
		allDone:  make(chan struct{}),
		shutdown: make(chan struct{}),
	}
}

// Run executes task 0 (ip 0) and every task transitively spawned from it,
// blocking until the whole program has terminated (normally, by
// cancellation, or by a fatal error that triggered global shutdown). Run
// returns the first fatal error encountered, if any; cancellation is never
// an error (spec §7 Policy). Cancelling ctx has the same effect as a fatal
// error: it triggers shutdown and Run returns once every task has drained.
func (vm *VM) Run(ctx context.Context) error {
	atomic.StoreInt64(&vm.pending, 1)
	root := newTask(0, 0, newGroup())
	go vm.runTask(ctx, root)

	select {
	case <-vm.allDone:
	case <-ctx.Done():
		vm.triggerShutdown()
		<-vm.allDone
	}
	return vm.err
}

func (vm *VM) triggerShutdown() {
	vm.shutdownOnce.Do(func() { close(vm.shutdown) })
}

func (vm *VM) recordError(err error) {
	if err == nil {
		return
	}
	vm.errMu.Lock()
	if vm.err == nil {
		vm.err = err
	}
	vm.errMu.Unlock()
	vm.triggerShutdown()
}

// spawn registers a new child task for joining (spec: "sender handle to
// register spawned child tasks for joining") and launches it. The pending
// counter is incremented before the goroutine starts so the VM can never
// observe "no outstanding tasks" while a spawn is in flight.
func (vm *VM) spawn(ctx context.Context, child *task) {
	atomic.AddInt64(&vm.pending, 1)
	go vm.runTask(ctx, child)
}

func (vm *VM) runTask(ctx context.Context, t *task) {
	err := vm.loop(ctx, t)
	vm.recordError(err)
	if atomic.AddInt64(&vm.pending, -1) == 0 {
		close(vm.allDone)
	}
}

// loop races one instruction at a time against global shutdown and the
// task's own cancellation receiver (spec §5, "Global shutdown"). Both
// causes exit the task cleanly, with no error.
func (vm *VM) loop(ctx context.Context, t *task) error {
	for {
		select {
		case <-vm.shutdown:
			return nil
		case <-t.group.done():
			return nil
		default:
		}

		cont, err := vm.step(ctx, t)
		if err != nil {
			return &RuntimeError{Task: t.id, IP: t.ip, Err: err}
		}
		if !cont {
			return nil
		}
	}
}

// awaitCtx derives a context for a single suspension point (Print, Wait,
// At, Get, Set) that is cancelled the moment either global shutdown fires
// or the task's current cancellation group is broadcast to. The returned
// cleanup func must be called once the Engine call returns.
func (vm *VM) awaitCtx(parent context.Context, t *task) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	stop := make(chan struct{})
	go func() {
		select {
		case <-t.group.done():
			cancel()
		case <-vm.shutdown:
			cancel()
		case <-stop:
		}
	}()
	return ctx, func() {
		close(stop)
		cancel()
	}
}

// step executes exactly one instruction. It returns (true, nil) to keep
// running, (false, nil) on normal task completion (Term), or a non-nil
// error for any fatal condition (spec §7: TypeError / StackUnderflow /
// EngineError).
func (vm *VM) step(ctx context.Context, t *task) (bool, error) {
	ip := t.ip
	if ip < 0 || ip >= len(vm.code.Instructions) {
		return false, ErrConstantOutOfRange
	}
	inst := vm.code.Instructions[ip]
	t.ip = ip + 1 // default advance; overridden below where control flow differs

	switch inst.Op {
	case opcodes.OpConstant:
		if inst.Arg < 0 || inst.Arg >= len(vm.code.Constants) {
			return false, ErrConstantOutOfRange
		}
		return true, t.push(vm.code.Constants[inst.Arg].Clone())

	case opcodes.OpPrint:
		v, err := t.pop()
		if err != nil {
			return false, err
		}
		return vm.suspend(ctx, t, func(cctx context.Context) error {
			return vm.eng.Print(cctx, v.String())
		})

	case opcodes.OpPick:
		v, err := t.peek(inst.Arg)
		if err != nil {
			return false, err
		}
		return true, t.push(v.Clone())

	case opcodes.OpPop:
		_, err := t.pop()
		return true, err

	case opcodes.OpSwap:
		a, err := t.pop()
		if err != nil {
			return false, err
		}
		b, err := t.pop()
		if err != nil {
			return false, err
		}
		if err := t.push(a); err != nil {
			return false, err
		}
		return true, t.push(b)

	case opcodes.OpSpawn:
		child := t.fork(vm.newTaskID(), t.ip)
		vm.spawn(ctx, child)
		t.ip = inst.Arg
		return true, nil

	case opcodes.OpJump:
		t.ip = inst.Arg
		return true, nil

	case opcodes.OpJmpNot:
		v, err := t.pop()
		if err != nil {
			return false, err
		}
		b, ok := v.AsBool()
		if !ok {
			return false, ErrJmpNotOnNonBool
		}
		if !b {
			t.ip = inst.Arg
		}
		return true, nil

	case opcodes.OpCall:
		v, err := t.pop()
		if err != nil {
			return false, err
		}
		target, ok := v.AsJump()
		if !ok {
			return false, ErrCallOnNonJump
		}
		t.pushReturn(t.ip)
		t.ip = target
		return true, nil

	case opcodes.OpReturn:
		ret, err := t.popReturn()
		if err != nil {
			return false, err
		}
		t.ip = ret
		return true, nil

	case opcodes.OpTerm:
		return false, nil

	case opcodes.OpWait:
		v, err := t.pop()
		if err != nil {
			return false, err
		}
		d, ok := v.AsDuration()
		if !ok {
			return false, ErrWaitOnNonDuration
		}
		return vm.suspend(ctx, t, func(cctx context.Context) error {
			return vm.eng.Wait(cctx, d)
		})

	case opcodes.OpAt:
		v, err := t.pop()
		if err != nil {
			return false, err
		}
		tod, ok := v.AsTime()
		if !ok {
			return false, ErrAtOnNonTime
		}
		d, err := untilNext(tod)
		if err != nil {
			return false, err
		}
		return vm.suspend(ctx, t, func(cctx context.Context) error {
			return vm.eng.Wait(cctx, d)
		})

	case opcodes.OpSet:
		val, err := t.pop()
		if err != nil {
			return false, err
		}
		pathVal, err := t.pop()
		if err != nil {
			return false, err
		}
		if pathVal.Type != values.TypePath {
			return false, ErrSetOnNonPath
		}
		path, _ := pathVal.AsString()
		payload, err := values.Marshal(val)
		if err != nil {
			return false, err
		}
		return vm.suspend(ctx, t, func(cctx context.Context) error {
			return vm.eng.Set(cctx, path, payload)
		})

	case opcodes.OpGet:
		pathVal, err := t.pop()
		if err != nil {
			return false, err
		}
		if pathVal.Type != values.TypePath {
			return false, ErrGetOnNonPath
		}
		path, _ := pathVal.AsString()
		var data []byte
		cont, err := vm.suspend(ctx, t, func(cctx context.Context) error {
			var getErr error
			data, getErr = vm.eng.Get(cctx, path)
			return getErr
		})
		if err != nil || !cont {
			return cont, err
		}
		return true, t.push(values.Parse(data))

	case opcodes.OpStop:
		t.group.cancel()
		return true, nil

	case opcodes.OpSceneContext:
		t.group = newGroup()
		return true, nil

	case opcodes.OpEqual:
		rhs, err := t.pop()
		if err != nil {
			return false, err
		}
		lhs, err := t.pop()
		if err != nil {
			return false, err
		}
		return true, t.push(values.NewBool(values.Equal(lhs, rhs)))

	case opcodes.OpIndex:
		key, err := t.pop()
		if err != nil {
			return false, err
		}
		objVal, err := t.pop()
		if err != nil {
			return false, err
		}
		obj, ok := objVal.AsObject()
		if !ok {
			return false, ErrIndexOnNonObject
		}
		k, _ := key.AsString()
		field, ok := obj.Fields[k]
		if !ok {
			return false, ErrIndexKeyNotFound
		}
		return true, t.push(field.Clone())

	default:
		return false, ErrUnknownOpcode
	}
}

// suspend runs call under a context derived for this one suspension point.
// A cancellation-caused failure (global shutdown or the task's group being
// stopped) ends the task cleanly; any other error is fatal.
func (vm *VM) suspend(ctx context.Context, t *task, call func(context.Context) error) (bool, error) {
	cctx, cleanup := vm.awaitCtx(ctx, t)
	err := call(cctx)
	cleanup()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (vm *VM) newTaskID() int {
	return int(atomic.AddInt64(&vm.nextID, 1))
}

// untilNext computes the wait duration for an At(Time) instruction: the gap
// until the next HH:MM occurrence, rolling over to tomorrow if that time of
// day has already passed today. Sunrise/sunset are declared but stubbed
// (spec §9 Open Questions).
func untilNext(tod *values.TimeOfDay) (time.Duration, error) {
	if tod.Kind != values.TimeHourMinute {
		return 0, ErrSunTimeUnsupported
	}
	now := time.Now()
	target := time.Date(now.Year(), now.Month(), now.Day(), tod.Hour, tod.Minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.Add(24 * time.Hour)
	}
	return target.Sub(now), nil
}
