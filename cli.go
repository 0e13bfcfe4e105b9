package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `Zinc - a small statically-typed language that compiles to x86-64

Usage:
    zinc <command> [arguments]

Commands:
    build <file>    Compile a .zn file to assembly text
    check <file>    Parse and type-check a .zn file
    run <file>      Compile, assemble, link and execute a .zn file
    help            Show this help message

Examples:
    zinc build -o program.s examples/sum.zn
    zinc check myfile.zn
    zinc run examples/sum.zn

Use "zinc <command> -h" for more information about a command.
`)
}

// exitCompile reports a compilation failure and exits. Source errors
// and compiler bugs get distinct exit codes.
func exitCompile(err error) {
	if _, ok := err.(internalError); ok {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// recoverInternal turns an internalError panic into a clean exit
// instead of a goroutine dump. Anything else keeps panicking.
func recoverInternal() {
	if r := recover(); r != nil {
		if ie, ok := r.(internalError); ok {
			exitCompile(ie)
		}
		panic(r)
	}
}

func readSource(filename string) string {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}
	return string(source)
}

func compileFile(filename string, verbose bool) string {
	source := readSource(filename)

	if verbose {
		root, tokens, err := ParseProgram(source)
		if err != nil {
			exitCompile(err)
		}
		fmt.Fprintf(os.Stderr, "tokens:\n%s", FormatTokens(tokens))
		fmt.Fprintf(os.Stderr, "ast: %s\n", ToSExpr(root))
	}

	asm, err := Compile(source)
	if err != nil {
		exitCompile(err)
	}
	return asm
}

func buildCommand(args []string) {
	defer recoverInternal()

	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <filename>.s)")
	verbose := fs.Bool("v", false, "Dump tokens and the AST before compiling")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: zinc build [-o output] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .zn file to assembly text\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	asm := compileFile(filename, *verbose)

	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, ".zn") + ".s"
	}

	if err := os.WriteFile(outputFile, []byte(asm), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputFile, err)
		os.Exit(1)
	}
}

func checkCommand(args []string) {
	defer recoverInternal()

	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Dump tokens and the AST")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: zinc check [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Parse and type-check a .zn file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	source := readSource(filename)

	root, tokens, err := ParseProgram(source)
	if err != nil {
		exitCompile(err)
	}

	fmt.Printf("%s: no errors found\n", filename)
	if *verbose {
		fmt.Fprintf(os.Stderr, "tokens:\n%s", FormatTokens(tokens))
		fmt.Fprintf(os.Stderr, "ast: %s\n", ToSExpr(root))
	}
}

func runCommand(args []string) {
	defer recoverInternal()

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	runtimePath := fs.String("runtime", "runtime/zinc_runtime.c", "Path to the runtime C source")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: zinc run [-v] [-runtime path] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile, assemble, link and execute a .zn file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	asm := compileFile(filename, *verbose)

	base := strings.TrimSuffix(filepath.Base(filename), ".zn")
	asmFile := "temp_" + base + ".s"
	binFile := "temp_" + base

	if err := os.WriteFile(asmFile, []byte(asm), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", asmFile, err)
		os.Exit(1)
	}
	defer os.Remove(asmFile)

	if *verbose {
		fmt.Fprintf(os.Stderr, "generated %d bytes of assembly\n", len(asm))
	}

	// The system C compiler assembles the output and links in the
	// runtime's print routines in one step.
	cc := exec.Command("cc", "-o", binFile, asmFile, *runtimePath)
	cc.Stdout = os.Stdout
	cc.Stderr = os.Stderr
	if err := cc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Assembling/linking failed: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(binFile)

	cmd := exec.Command("./" + binFile)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args)
	case "check":
		checkCommand(args)
	case "run":
		runCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
