package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/scenescript/scenectl/compiler"
	"github.com/scenescript/scenectl/compiler/parser"
	"github.com/scenescript/scenectl/engine"
	"github.com/scenescript/scenectl/vm"
)

// runInteractiveShell is the REPL: grounded on the teacher's multiline
// accumulation loop, upgraded to chzyer/readline for history and editing
// (a dependency the teacher imports but never wires into a running
// command). Every accepted statement compiles and runs as its own program
// against the same Engine: broker state set via `set` is visible to later
// turns, but each turn gets a fresh VM, so `let` bindings and running
// scenes do not outlive the statement that created them.
func runInteractiveShell(ctx context.Context, eng *engine.Memory) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "scenectl> ",
		HistoryFile:     "/tmp/scenectl_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	var buf strings.Builder
	for {
		prompt := "scenectl> "
		if buf.Len() > 0 {
			prompt = "......... "
		}
		rl.SetPrompt(prompt)

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if buf.Len() == 0 {
				continue
			}
			buf.Reset()
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if strings.TrimSpace(line) == "" && buf.Len() == 0 {
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")

		if !balanced(buf.String()) {
			continue
		}
		src := buf.String()
		buf.Reset()

		if err := evalLine(ctx, src, eng); err != nil {
			fmt.Fprintln(rl.Stderr(), err)
		}
	}
}

func evalLine(ctx context.Context, src string, eng *engine.Memory) error {
	prog, err := parser.Parse(src)
	if err != nil {
		return err
	}
	code, err := compiler.Compile(prog)
	if err != nil {
		return err
	}
	return vm.New(code, eng).Run(ctx)
}

// balanced reports whether src has no unclosed braces/parens outside a
// string literal, i.e. whether the REPL should submit it or keep reading.
func balanced(src string) bool {
	depth := 0
	inString := false
	escaped := false
	for _, ch := range src {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '(':
			depth++
		case '}', ')':
			depth--
		}
	}
	return depth <= 0 && !inString
}
