// Package compiler lowers an ast.Program to opcodes.Code: flat bytecode
// plus an interned constant pool. Name resolution happens here (stack
// depth, not symbol tables at runtime) and so does all control-flow
// back-patching. The VM never sees an unresolved address.
package compiler

import (
	"fmt"
	"time"

	"github.com/scenescript/scenectl/compiler/ast"
	"github.com/scenescript/scenectl/opcodes"
	"github.com/scenescript/scenectl/values"
)

// Compiler holds the state of a single compilation pass. It is not
// reentrant and not safe for concurrent use (construct one per Compile).
type Compiler struct {
	instructions []opcodes.Instruction
	constants    []*values.Value
	env          env
}

// Compile lowers prog into an immutable Code ready for vm.VM to run.
func Compile(prog *ast.Program) (*opcodes.Code, error) {
	c := &Compiler{}
	for _, stmt := range prog.Stmts {
		if err := c.compileStmt(stmt); err != nil {
			return nil, err
		}
	}
	c.emit(opcodes.OpTerm, 0)
	return &opcodes.Code{Instructions: c.instructions, Constants: c.constants}, nil
}

func (c *Compiler) emit(op opcodes.Op, arg int) int {
	c.instructions = append(c.instructions, opcodes.Instruction{Op: op, Arg: arg})
	return len(c.instructions) - 1
}

func (c *Compiler) patch(idx, target int) {
	c.instructions[idx].Arg = target
}

func (c *Compiler) here() int { return len(c.instructions) }

func (c *Compiler) intern(v *values.Value) int {
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

// --- statements ---

func (c *Compiler) compileStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.LetStmt:
		return c.compileLet(st)
	case *ast.SetStmt:
		return c.compileSet(st)
	case *ast.PrintStmt:
		return c.compilePrint(st)
	case *ast.WhenStmt:
		return c.compileWhen(st)
	case *ast.WaitStmt:
		return c.compileWait(st)
	case *ast.AtStmt:
		return c.compileAt(st)
	case *ast.SceneStmt:
		return c.compileScene(st)
	case *ast.StartStmt:
		return c.compileStart(st)
	case *ast.StopStmt:
		return c.compileStop(st)
	case *ast.BlockStmt:
		return c.compileBlockStmt(st)
	case *ast.ExprStmt:
		return c.compileExprStmt(st)
	default:
		return newCompileError(ErrUnsupportedOperator, fmt.Sprintf("unknown statement %T", s))
	}
}

func (c *Compiler) compileLet(s *ast.LetStmt) error {
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	c.env.bind(s.Name)
	return nil
}

func (c *Compiler) compileSet(s *ast.SetStmt) error {
	c.emit(opcodes.OpConstant, c.intern(values.NewPath(s.Path.Path)))
	// The Path stays on the stack while Value is evaluated; count it so
	// Picks inside Value reach past it.
	c.env.depth++
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	c.env.depth--
	c.emit(opcodes.OpSet, 0)
	return nil
}

func (c *Compiler) compilePrint(s *ast.PrintStmt) error {
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	c.emit(opcodes.OpPrint, 0)
	return nil
}

// compileWhen realises: Spawn(RESUME); loop_head: cond; JmpNot(loop_head);
// body; Jump(loop_head); RESUME:
func (c *Compiler) compileWhen(s *ast.WhenStmt) error {
	spawn := c.emit(opcodes.OpSpawn, 0)
	loopHead := c.here()
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	c.emit(opcodes.OpJmpNot, loopHead)
	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	c.emit(opcodes.OpJump, loopHead)
	c.patch(spawn, c.here())
	return nil
}

// compileWait realises: Spawn(RESUME); dur; Wait; body; Term; RESUME:
func (c *Compiler) compileWait(s *ast.WaitStmt) error {
	spawn := c.emit(opcodes.OpSpawn, 0)
	if err := c.compileExpr(s.Duration); err != nil {
		return err
	}
	c.emit(opcodes.OpWait, 0)
	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	c.emit(opcodes.OpTerm, 0)
	c.patch(spawn, c.here())
	return nil
}

// compileAt realises: Spawn(RESUME); loop_head: time; At; body;
// Jump(loop_head); RESUME:
func (c *Compiler) compileAt(s *ast.AtStmt) error {
	spawn := c.emit(opcodes.OpSpawn, 0)
	loopHead := c.here()
	if err := c.compileExpr(s.Time); err != nil {
		return err
	}
	c.emit(opcodes.OpAt, 0)
	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	c.emit(opcodes.OpJump, loopHead)
	c.patch(spawn, c.here())
	return nil
}

// compileScene synthesises the start/stop Jump pair described in spec §4.1
// and §9: two constants bound into the enclosing scope, a Jump over the
// inline scene code, the scene body behind SceneContext/Return, and a
// one-instruction Stop/Return routine.
func (c *Compiler) compileScene(s *ast.SceneStmt) error {
	startConst := values.NewJump(0)
	stopConst := values.NewJump(0)
	startIdx := c.intern(startConst)
	stopIdx := c.intern(stopConst)

	c.emit(opcodes.OpConstant, startIdx)
	c.env.bind(s.Name)
	c.emit(opcodes.OpConstant, stopIdx)
	c.env.bind(s.Name + " stop")

	jumpOver := c.emit(opcodes.OpJump, 0)

	sceneStart := c.here()
	c.emit(opcodes.OpSceneContext, 0)
	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	c.emit(opcodes.OpReturn, 0)

	sceneStop := c.here()
	c.emit(opcodes.OpStop, 0)
	c.emit(opcodes.OpReturn, 0)

	c.patch(jumpOver, c.here())
	startConst.Data = sceneStart
	stopConst.Data = sceneStop
	return nil
}

func (c *Compiler) compileStart(s *ast.StartStmt) error {
	return c.emitCall(s.Name)
}

func (c *Compiler) compileStop(s *ast.StopStmt) error {
	return c.emitCall(s.Name + " stop")
}

func (c *Compiler) emitCall(name string) error {
	d := c.env.lookup(name)
	if d == 0 {
		return newCompileError(ErrUndefinedIdent, name)
	}
	c.emit(opcodes.OpPick, d-1)
	c.emit(opcodes.OpCall, 0)
	return nil
}

func (c *Compiler) compileBlockStmt(s *ast.BlockStmt) error {
	mark := c.env.mark()
	for _, stmt := range s.Stmts {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	n := c.env.popTo(mark)
	for i := 0; i < n; i++ {
		c.emit(opcodes.OpPop, 0)
	}
	return nil
}

func (c *Compiler) compileExprStmt(s *ast.ExprStmt) error {
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	c.emit(opcodes.OpPop, 0)
	return nil
}

// --- expressions ---

func (c *Compiler) compileExpr(e ast.Expr) error {
	switch ex := e.(type) {
	case *ast.StringLiteral:
		c.emit(opcodes.OpConstant, c.intern(values.NewString(ex.Value)))
	case *ast.IntegerLiteral:
		c.emit(opcodes.OpConstant, c.intern(values.NewInteger(ex.Value)))
	case *ast.FloatLiteral:
		c.emit(opcodes.OpConstant, c.intern(values.NewFloat(ex.Value)))
	case *ast.BoolLiteral:
		c.emit(opcodes.OpConstant, c.intern(values.NewBool(ex.Value)))
	case *ast.DurationLiteral:
		c.emit(opcodes.OpConstant, c.intern(durationValue(ex)))
	case *ast.TimeLiteral:
		c.emit(opcodes.OpConstant, c.intern(timeValue(ex)))
	case *ast.PathLiteral:
		c.emit(opcodes.OpConstant, c.intern(values.NewPath(ex.Path)))
		c.emit(opcodes.OpGet, 0)
	case *ast.Ident:
		d := c.env.lookup(ex.Name)
		if d == 0 {
			return newCompileError(ErrUndefinedIdent, ex.Name)
		}
		c.emit(opcodes.OpPick, d-1)
	case *ast.BinaryExpr:
		return c.compileBinary(ex)
	case *ast.AsExpr:
		return c.compileAs(ex)
	case *ast.IndexExpr:
		return c.compileIndex(ex)
	case *ast.ObjectLiteral:
		v, err := foldObject(ex)
		if err != nil {
			return err
		}
		c.emit(opcodes.OpConstant, c.intern(v))
	default:
		return newCompileError(ErrUnsupportedOperator, fmt.Sprintf("unknown expression %T", e))
	}
	return nil
}

func (c *Compiler) compileBinary(ex *ast.BinaryExpr) error {
	if ex.Op != "is" {
		return newCompileError(ErrUnsupportedOperator, ex.Op)
	}
	if err := c.compileExpr(ex.Left); err != nil {
		return err
	}
	// Left's value sits on the stack while Right is evaluated.
	c.env.depth++
	if err := c.compileExpr(ex.Right); err != nil {
		return err
	}
	c.env.depth--
	c.emit(opcodes.OpEqual, 0)
	return nil
}

// compileAs realises: init; bind name; cont; Swap; Pop (the binding never
// outlives the continuation, spec §8 property 3).
func (c *Compiler) compileAs(ex *ast.AsExpr) error {
	if err := c.compileExpr(ex.Init); err != nil {
		return err
	}
	c.env.bind(ex.Name)
	if err := c.compileExpr(ex.Cont); err != nil {
		return err
	}
	c.emit(opcodes.OpSwap, 0)
	c.emit(opcodes.OpPop, 0)
	c.env.popTo(c.env.mark() - 1)
	return nil
}

func (c *Compiler) compileIndex(ex *ast.IndexExpr) error {
	if err := c.compileExpr(ex.Obj); err != nil {
		return err
	}
	c.emit(opcodes.OpConstant, c.intern(values.NewString(ex.Key)))
	c.emit(opcodes.OpIndex, 0)
	return nil
}

func durationValue(d *ast.DurationLiteral) *values.Value {
	return values.NewDuration(time.Duration(d.Nanoseconds))
}

func timeValue(t *ast.TimeLiteral) *values.Value {
	switch t.Kind {
	case ast.TimeSunrise:
		return values.NewTimeSunrise()
	case ast.TimeSunset:
		return values.NewTimeSunset()
	default:
		return values.NewTimeHourMinute(t.Hour, t.Minute)
	}
}

// foldObject recursively evaluates an object literal into a single constant
// Value; every field must itself be a literal (spec §4.1: "Object →
// serialised into a literal Object value in the pool").
func foldObject(ex *ast.ObjectLiteral) (*values.Value, error) {
	fields := make(map[string]*values.Value, len(ex.Fields))
	for _, f := range ex.Fields {
		v, err := foldLiteral(f.Value)
		if err != nil {
			return nil, err
		}
		fields[f.Key] = v
	}
	return values.NewObjectValue(values.NewObject(fields)), nil
}

func foldLiteral(e ast.Expr) (*values.Value, error) {
	switch ex := e.(type) {
	case *ast.StringLiteral:
		return values.NewString(ex.Value), nil
	case *ast.IntegerLiteral:
		return values.NewInteger(ex.Value), nil
	case *ast.FloatLiteral:
		return values.NewFloat(ex.Value), nil
	case *ast.BoolLiteral:
		return values.NewBool(ex.Value), nil
	case *ast.DurationLiteral:
		return durationValue(ex), nil
	case *ast.TimeLiteral:
		return timeValue(ex), nil
	case *ast.PathLiteral:
		return values.NewPath(ex.Path), nil
	case *ast.ObjectLiteral:
		return foldObject(ex)
	default:
		return nil, newCompileError(ErrNonLiteralObject, fmt.Sprintf("%T", e))
	}
}
