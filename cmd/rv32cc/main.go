package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/minic32/rv32cc/pkg/asmprog"
	"github.com/minic32/rv32cc/pkg/ast"
	"github.com/minic32/rv32cc/pkg/cfg"
	"github.com/minic32/rv32cc/pkg/lexer"
	"github.com/minic32/rv32cc/pkg/parser"
	"github.com/minic32/rv32cc/pkg/preproc"
	"github.com/minic32/rv32cc/pkg/sema"
	"github.com/minic32/rv32cc/pkg/tac"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Debug flags for dumping intermediate representations.
var (
	dParse bool
	dSema  bool
	dTAC   bool
	dCFG   bool
	dAsm   bool
	dPP    bool // Debug preprocessor
)

// Preprocessor options.
var (
	includePaths   []string
	systemPaths    []string
	defineFlags    []string
	undefineFlags  []string
	preprocessOnly bool // -E flag
	useExternalPP  bool
)

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

// debugFlagNames lists debug flags that also accept CompCert-style
// single-dash spelling (e.g. -dtac instead of --dtac).
var debugFlagNames = []string{"dparse", "dsema", "dtac", "dcfg", "dasm", "dpp"}

// normalizeFlags rewrites single-dash debug flags to double-dash so pflag
// recognizes them; every other argument passes through unchanged.
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
		Use:   "rv32cc [file]",
		Short: "rv32cc compiles a small C-like language to RV32I assembly",
		Long: `rv32cc is a whole-program compiler for a small C-like imperative
language, targeting 32-bit RISC-V assembly. Each stage can be dumped
independently for inspection: parsing, name resolution, three-address
code, control-flow/liveness, and final assembly.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			// THE CORE's stages panic on their own broken invariants
			// (pkg/compilerr) rather than threading an error return
			// through every call; recover that here into a clean,
			// reported failure instead of crashing the process.
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(errOut, "rv32cc: internal error: %v\n", r)
					err = fmt.Errorf("internal error: %v", r)
				}
			}()

			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			if preprocessOnly {
				return doPreprocessOnly(filename, out, errOut)
			}
			if dPP {
				return doPreprocessDebug(filename, out, errOut)
			}
			if dParse {
				return doParse(filename, out, errOut)
			}
			if dSema {
				return doSema(filename, out, errOut)
			}
			if dTAC {
				return doTAC(filename, out, errOut)
			}
			if dCFG {
				return doCFG(filename, out, errOut)
			}
			if dAsm {
				return doAsm(filename, out, errOut)
			}

			fmt.Fprintf(errOut, "rv32cc: compiling %s\n", filename)
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVarP(&dParse, "dparse", "", false, "Dump after parsing")
	rootCmd.Flags().BoolVarP(&dSema, "dsema", "", false, "Dump name-resolution diagnostics")
	rootCmd.Flags().BoolVarP(&dTAC, "dtac", "", false, "Dump three-address code")
	rootCmd.Flags().BoolVarP(&dCFG, "dcfg", "", false, "Dump control-flow graph and liveness")
	rootCmd.Flags().BoolVarP(&dAsm, "dasm", "", false, "Dump assembly")
	rootCmd.Flags().BoolVarP(&dPP, "dpp", "", false, "Debug preprocessor operation")

	rootCmd.Flags().StringArrayVarP(&includePaths, "include", "I", nil, "Add directory to include search path")
	rootCmd.Flags().StringArrayVar(&systemPaths, "isystem", nil, "Add directory to system include search path")
	rootCmd.Flags().StringArrayVarP(&defineFlags, "define", "D", nil, "Define macro (NAME or NAME=VALUE)")
	rootCmd.Flags().StringArrayVarP(&undefineFlags, "undefine", "U", nil, "Undefine macro")
	rootCmd.Flags().BoolVarP(&preprocessOnly, "preprocess", "E", false, "Preprocess only, output to stdout")
	rootCmd.Flags().BoolVar(&useExternalPP, "external-cpp", false, "Use external C preprocessor instead of internal")

	return rootCmd
}

func buildPreprocessorOptions() *preproc.Options {
	opts := &preproc.Options{
		IncludePaths: includePaths,
		SystemPaths:  systemPaths,
		Defines:      make(map[string]string),
		Undefines:    undefineFlags,
		UseExternal:  useExternalPP,
	}
	for _, d := range defineFlags {
		if idx := strings.Index(d, "="); idx >= 0 {
			opts.Defines[d[:idx]] = d[idx+1:]
		} else {
			opts.Defines[d] = ""
		}
	}
	return opts
}

// readAndPreprocess reads filename, running it through the preprocessor
// unless its extension marks it as already preprocessed.
func readAndPreprocess(filename string, errOut io.Writer) (string, error) {
	if preproc.NeedsPreprocessing(filename) {
		content, err := preproc.Preprocess(filename, buildPreprocessorOptions())
		if err != nil {
			fmt.Fprintf(errOut, "rv32cc: preprocessing error: %v\n", err)
			return "", err
		}
		return content, nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(errOut, "rv32cc: error reading %s: %v\n", filename, err)
		return "", err
	}
	return string(content), nil
}

func doPreprocessOnly(filename string, out, errOut io.Writer) error {
	opts := buildPreprocessorOptions()
	opts.LineMarkers = true
	content, err := preproc.Preprocess(filename, opts)
	if err != nil {
		fmt.Fprintf(errOut, "rv32cc: preprocessing error: %v\n", err)
		return err
	}
	fmt.Fprint(out, content)
	return nil
}

func doPreprocessDebug(filename string, out, errOut io.Writer) error {
	opts := buildPreprocessorOptions()
	opts.LineMarkers = true
	content, err := preproc.Preprocess(filename, opts)
	if err != nil {
		fmt.Fprintf(errOut, "rv32cc: preprocessing error: %v\n", err)
		return err
	}

	outputFilename := suffixedOutputFilename(filename, ".i")
	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(errOut, "rv32cc: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()
	outFile.WriteString(content)

	fmt.Fprint(out, content)
	return nil
}

// suffixedOutputFilename replaces a trailing .c with the given suffix,
// or appends it if the input has no .c extension (matching CompCert's
// convention of deriving dump filenames from the source name).
func suffixedOutputFilename(filename, suffix string) string {
	const ext = ".c"
	if strings.HasSuffix(filename, ext) {
		return filename[:len(filename)-len(ext)] + suffix
	}
	return filename + suffix
}

// parseFile preprocesses and parses filename, returning the AST.
func parseFile(filename string, errOut io.Writer) (*ast.Program, error) {
	content, err := readAndPreprocess(filename, errOut)
	if err != nil {
		return nil, err
	}

	l := lexer.New(content)
	p := parser.New(l)
	program := p.ParseProgram()

	if len(p.Errors()) > 0 {
		for _, e := range p.Errors() {
			fmt.Fprintf(errOut, "%s: %s\n", filename, e)
		}
		return nil, fmt.Errorf("parsing failed with %d errors", len(p.Errors()))
	}
	return program, nil
}

// checkedProgram parses filename and runs name resolution over it,
// reporting diagnostics the same way parseFile reports parse errors.
func checkedProgram(filename string, errOut io.Writer) (*ast.Program, error) {
	program, err := parseFile(filename, errOut)
	if err != nil {
		return nil, err
	}
	if errs := sema.Check(program); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(errOut, "%s: %s\n", filename, e)
		}
		return nil, fmt.Errorf("semantic check failed with %d errors", len(errs))
	}
	return program, nil
}

func doParse(filename string, out, errOut io.Writer) error {
	program, err := parseFile(filename, errOut)
	if err != nil {
		return err
	}

	outputFilename := suffixedOutputFilename(filename, ".parsed.c")
	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(errOut, "rv32cc: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()

	ast.NewPrinter(outFile).PrintProgram(program)
	ast.NewPrinter(out).PrintProgram(program)
	return nil
}

// doSema runs name resolution and reports either its diagnostics or
// confirmation that the program resolved cleanly; it has no IR of its own
// to dump, so unlike the other stages it writes no intermediate file.
func doSema(filename string, out, errOut io.Writer) error {
	_, err := checkedProgram(filename, errOut)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: ok\n", filename)
	return nil
}

func doTAC(filename string, out, errOut io.Writer) error {
	program, err := checkedProgram(filename, errOut)
	if err != nil {
		return err
	}
	tacProg := tac.BuildProgram(program)

	outputFilename := suffixedOutputFilename(filename, ".tac")
	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(errOut, "rv32cc: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()

	tac.NewPrinter(outFile).PrintProgram(tacProg)
	tac.NewPrinter(out).PrintProgram(tacProg)
	return nil
}

// doCFG builds each function's basic-block graph and runs liveness over
// it, printing block membership, successors and live-in/live-out temps.
// There is no round-trippable textual IR here, so unlike doParse/doTAC/
// doAsm this writes no companion file.
func doCFG(filename string, out, errOut io.Writer) error {
	program, err := checkedProgram(filename, errOut)
	if err != nil {
		return err
	}
	tacProg := tac.BuildProgram(program)

	for _, fn := range tacProg.Functions {
		fmt.Fprintf(out, "function %s:\n", fn.Name)
		g := cfg.Build(fn)
		live := cfg.Analyze(g)
		for _, b := range g.Blocks {
			fmt.Fprintf(out, "  block %d (reachable=%v, successors=%v)\n", b.Index, b.Reachable, b.Successors())
			for _, instr := range b.Instrs {
				fmt.Fprintf(out, "    %s\n", instr)
			}
			fmt.Fprintf(out, "    live-in:  %s\n", formatRegSet(live.BlockLiveIn[b.Index]))
			fmt.Fprintf(out, "    live-out: %s\n", formatRegSet(live.BlockLiveOut[b.Index]))
		}
	}
	return nil
}

func formatRegSet(s cfg.RegSet) string {
	temps := make([]int, 0, len(s))
	for t := range s {
		temps = append(temps, int(t))
	}
	sort.Ints(temps)
	parts := make([]string, len(temps))
	for i, t := range temps {
		parts[i] = fmt.Sprintf("t%d", t)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func doAsm(filename string, out, errOut io.Writer) error {
	program, err := checkedProgram(filename, errOut)
	if err != nil {
		return err
	}
	tacProg := tac.BuildProgram(program)
	asmText := asmprog.Compile(tacProg)

	outputFilename := suffixedOutputFilename(filename, ".s")
	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(errOut, "rv32cc: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()

	fmt.Fprint(outFile, asmText)
	fmt.Fprint(out, asmText)
	return nil
}
