// Command lacec compiles one or more Lace source files into x86-64 AT&T
// assembly through a single synchronous pipeline: parse -> resolve ->
// check -> build MIR -> select -> allocate -> emit assembly, with one
// `do*` handler per debug dump stage and a normalizeFlags pass for
// single-dash debug flags.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bpetrakis/lacec/pkg/asm"
	"github.com/bpetrakis/lacec/pkg/asmgen"
	"github.com/bpetrakis/lacec/pkg/ast"
	"github.com/bpetrakis/lacec/pkg/diag"
	"github.com/bpetrakis/lacec/pkg/machir"
	"github.com/bpetrakis/lacec/pkg/mir"
	"github.com/bpetrakis/lacec/pkg/mirgen"
	"github.com/bpetrakis/lacec/pkg/regalloc"
	"github.com/bpetrakis/lacec/pkg/sema"
	select_ "github.com/bpetrakis/lacec/pkg/select"
	"github.com/bpetrakis/lacec/pkg/types"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	output string
	dParse bool
	dMIR   bool
	dMachIR bool
	dAsm   bool
)

// resetDebugFlags clears every package-level flag variable; tests that
// invoke newRootCmd directly (rather than through a subprocess) call this
// between cases so one test's flags can't leak into the next.
func resetDebugFlags() {
	output = ""
	dParse, dMIR, dMachIR, dAsm = false, false, false, false
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists debug flags that also accept single-dash spelling
// (-dparse as well as --dparse).
var debugFlagNames = []string{"dparse", "dmir", "dmachir", "dasm"}

func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = arg
		for _, name := range debugFlagNames {
			if arg == "-"+name {
				result[i] = "--" + name
				break
			}
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lacec [files...]",
		Short: "lacec compiles Lace source files to x86-64 assembly",
		Long: `lacec is an ahead-of-time compiler for the Lace systems language.
It lexes, parses, resolves, and type-checks one or more source files folded
into a single translation unit via their load statements, then lowers the
result through MIR and MachIR to GNU AT&T x86-64 assembly.`,
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case dParse:
				return doParse(args, out, errOut)
			case dMIR:
				return doMIR(args, out, errOut)
			case dMachIR:
				return doMachIR(args, out, errOut)
			case dAsm:
				return doDumpAsm(args, out, errOut)
			default:
				return doCompile(args, out, errOut)
			}
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output assembly file path (default \"main.s\")")
	rootCmd.Flags().BoolVar(&dParse, "dparse", false, "dump the parsed AST")
	rootCmd.Flags().BoolVar(&dMIR, "dmir", false, "dump MIR after building")
	rootCmd.Flags().BoolVar(&dMachIR, "dmachir", false, "dump MachIR after instruction selection and allocation")
	rootCmd.Flags().BoolVar(&dAsm, "dasm", false, "dump the generated assembly")

	return rootCmd
}

// frontend runs the shared lex/parse/resolve/check pipeline, returning the
// folded, fully-annotated program.
func frontend(files []string, errOut io.Writer) (*ast.Program, *diag.Context, error) {
	diags := diag.New()
	tctx := types.NewContext()

	prog, err := loadProgram(files, diags, tctx)
	if err != nil {
		diags.WriteTo(errOut)
		return nil, diags, err
	}
	if diags.HasErrors() {
		diags.WriteTo(errOut)
		return nil, diags, fmt.Errorf("lacec: parsing failed")
	}

	if err := sema.Resolve(prog, diags); err != nil {
		diags.WriteTo(errOut)
		return nil, diags, err
	}
	if err := sema.Check(prog, diags); err != nil {
		diags.WriteTo(errOut)
		return nil, diags, err
	}
	diags.WriteTo(errOut)
	return prog, diags, nil
}

func doParse(files []string, out, errOut io.Writer) error {
	diags := diag.New()
	tctx := types.NewContext()
	prog, err := loadProgram(files, diags, tctx)
	diags.WriteTo(errOut)
	if err != nil {
		return err
	}
	fmt.Fprint(out, ast.Dump(prog))
	return nil
}

func buildMIR(files []string, errOut io.Writer) (*mir.CFG, error) {
	prog, diags, err := frontend(files, errOut)
	if err != nil {
		return nil, err
	}
	cfg, err := mirgen.Build(prog, diags)
	diags.WriteTo(errOut)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func doMIR(files []string, out, errOut io.Writer) error {
	cfg, err := buildMIR(files, errOut)
	if err != nil {
		return err
	}
	fmt.Fprint(out, mir.Dump(cfg))
	return nil
}

func buildMachIR(files []string, errOut io.Writer) (*machir.Segment, error) {
	cfg, err := buildMIR(files, errOut)
	if err != nil {
		return nil, err
	}
	seg := select_.Select(cfg)
	for _, fn := range seg.Functions {
		regalloc.Allocate(fn)
	}
	return seg, nil
}

func doMachIR(files []string, out, errOut io.Writer) error {
	seg, err := buildMachIR(files, errOut)
	if err != nil {
		return err
	}
	fmt.Fprint(out, machir.Dump(seg))
	return nil
}

func buildAsm(files []string, errOut io.Writer) (*asm.File, error) {
	seg, err := buildMachIR(files, errOut)
	if err != nil {
		return nil, err
	}
	return asmgen.TransformSegment(seg, files[0]), nil
}

func doDumpAsm(files []string, out, errOut io.Writer) error {
	f, err := buildAsm(files, errOut)
	if err != nil {
		return err
	}
	return asm.NewPrinter(out).Print(f)
}

func doCompile(files []string, out, errOut io.Writer) error {
	f, err := buildAsm(files, errOut)
	if err != nil {
		return err
	}

	path := outputPath()
	outFile, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(errOut, "lacec: creating %s: %v\n", path, err)
		return err
	}
	defer outFile.Close()

	return asm.NewPrinter(outFile).Print(f)
}

// outputPath computes the assembly output path: "main" when -o is not
// given, with ".s" appended whenever the chosen name carries no extension
// of its own.
func outputPath() string {
	name := output
	if name == "" {
		name = "main"
	}
	base := name
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if !strings.Contains(base, ".") {
		name += ".s"
	}
	return name
}
