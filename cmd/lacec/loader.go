package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bpetrakis/lacec/pkg/ast"
	"github.com/bpetrakis/lacec/pkg/diag"
	"github.com/bpetrakis/lacec/pkg/parser"
	"github.com/bpetrakis/lacec/pkg/types"
)

// loadProgram parses every file in files and recursively folds every
// `load`ed file they reach into one ast.Program sharing a single root
// scope. Files are read and appended in argument order, then in the order
// their `load` statements are first encountered.
func loadProgram(files []string, diags *diag.Context, tctx *types.Context) (*ast.Program, error) {
	prog := &ast.Program{Root: ast.NewScope(nil), Types: tctx}
	seen := make(map[string]bool)

	for _, f := range files {
		if err := loadFile(f, prog, diags, tctx, seen); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

// loadFile parses path (if not already loaded) and appends its non-load
// definitions to prog, then recursively loads every file it `load`s,
// resolved relative to path's own directory.
func loadFile(path string, prog *ast.Program, diags *diag.Context, tctx *types.Context, seen map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("lacec: resolving %s: %w", path, err)
	}
	if seen[abs] {
		return nil
	}
	seen[abs] = true

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("lacec: reading %s: %w", path, err)
	}

	p := parser.NewWithScope(path, string(content), diags, tctx, prog.Root)
	file := p.ParseProgram()
	if len(p.Errors()) > 0 {
		return fmt.Errorf("lacec: parsing %s failed with %d error(s)", path, len(p.Errors()))
	}

	dir := filepath.Dir(path)
	for _, def := range file.Defs {
		load, ok := def.(*ast.LoadDef)
		if !ok {
			prog.Defs = append(prog.Defs, def)
			continue
		}
		loadedPath := load.Path
		if !filepath.IsAbs(loadedPath) {
			loadedPath = filepath.Join(dir, loadedPath)
		}
		if err := loadFile(loadedPath, prog, diags, tctx, seen); err != nil {
			return err
		}
	}
	return nil
}
