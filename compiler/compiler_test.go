package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scenescript/scenectl/compiler"
	"github.com/scenescript/scenectl/compiler/parser"
	"github.com/scenescript/scenectl/opcodes"
)

func mustCompile(t *testing.T, src string) *opcodes.Code {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	code, err := compiler.Compile(prog)
	require.NoError(t, err)
	return code
}

func TestProgramEndsWithTerm(t *testing.T) {
	code := mustCompile(t, `print "x";`)
	last := code.Instructions[len(code.Instructions)-1]
	require.Equal(t, opcodes.OpTerm, last.Op)
}

func TestBlockEmitsOnePopPerBinding(t *testing.T) {
	code := mustCompile(t, `{ let a = 1; let b = 2; };`)
	pops := 0
	for _, inst := range code.Instructions {
		if inst.Op == opcodes.OpPop {
			pops++
		}
	}
	require.Equal(t, 2, pops)
}

func TestUndefinedIdentIsACompileError(t *testing.T) {
	prog, err := parser.Parse(`print x;`)
	require.NoError(t, err)
	_, err = compiler.Compile(prog)
	require.ErrorIs(t, err, compiler.ErrUndefinedIdent)
}

func TestSceneCompilesJumpOverBodyAndSynthesisesStopRoutine(t *testing.T) {
	code := mustCompile(t, `scene night { print "x"; }; start night; stop night;`)

	var sceneContexts, stops int
	for _, inst := range code.Instructions {
		switch inst.Op {
		case opcodes.OpSceneContext:
			sceneContexts++
		case opcodes.OpStop:
			stops++
		}
	}
	require.Equal(t, 1, sceneContexts)
	require.Equal(t, 1, stops)

	// The two Jump constants (start-address, stop-address) must resolve to
	// distinct instruction indices within range.
	var jumps []int
	for _, c := range code.Constants {
		if ip, ok := c.AsJump(); ok {
			jumps = append(jumps, ip)
		}
	}
	require.Len(t, jumps, 2)
	require.NotEqual(t, jumps[0], jumps[1])
	for _, ip := range jumps {
		require.GreaterOrEqual(t, ip, 0)
		require.Less(t, ip, len(code.Instructions))
	}
}

// Property 1 (spec §8): compiling the same source twice must yield a
// byte-identical Code. The compiler carries no hidden state across runs.
func TestCompileIsDeterministic(t *testing.T) {
	src := `let x = "x"; when <light> is "on" print "off"; scene night { print "x"; }; start night; stop night;`
	a := mustCompile(t, src)
	b := mustCompile(t, src)
	require.Equal(t, a, b)
}

func TestAsBindingDoesNotOutliveContinuation(t *testing.T) {
	code := mustCompile(t, `print (1 as n in n);`)
	var swaps int
	for _, inst := range code.Instructions {
		if inst.Op == opcodes.OpSwap {
			swaps++
		}
	}
	require.Equal(t, 1, swaps)
}
