package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/scenescript/scenectl/compiler"
	"github.com/scenescript/scenectl/compiler/parser"
	"github.com/scenescript/scenectl/engine"
	"github.com/scenescript/scenectl/vm"
)

// scriptExt is the extension scenectl discovers scripts by when scanning a
// directory (spec §6.1).
const scriptExt = ".scene"

// discoverScripts lists dir non-recursively for *.scene files, sorted by
// name for deterministic run order.
func discoverScripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != scriptExt {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// runSource compiles and runs one program to completion against eng.
func runSource(ctx context.Context, src string, eng engine.Engine) error {
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

func runFile(ctx context.Context, path string, eng engine.Engine) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	log.Printf("running %s (%s)", path, humanize.Bytes(uint64(len(data))))
	if err := runSource(ctx, string(data), eng); err != nil {
		log.Printf("%s: %v", path, err)
		return err
	}
	return nil
}

// runAll runs every path concurrently against the same Engine (scripts
// share the broker the way independent scenes on the same bus would) and
// waits for all of them, returning the first error seen.
func runAll(ctx context.Context, paths []string, eng engine.Engine) error {
	var wg sync.WaitGroup
	errs := make([]error, len(paths))
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			errs[i] = runFile(ctx, p, eng)
		}(i, p)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// runStdin reads a single script from r and runs it.
func runStdin(ctx context.Context, r io.Reader, eng engine.Engine) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return runSource(ctx, string(data), eng)
}
