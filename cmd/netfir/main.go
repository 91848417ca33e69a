package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"netfir/internal/backend"
	"netfir/internal/diag"
	"netfir/internal/firrtl"
	"netfir/internal/frontend"
	"netfir/internal/passes"
	"netfir/internal/rtl"
	"netfir/internal/validate"
)

var emitVerilog = backend.EmitVerilog

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printGlobalUsage()
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "emit":
		return runEmit(args[1:])
	case "check":
		return runCheck(args[1:])
	default:
		printGlobalUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printGlobalUsage() {
	fmt.Fprintf(os.Stderr, "netfir netlist backend\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  netfir <command> [options] design.json\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  emit     Translate a JSON netlist to RTL dump, FIRRTL, or Verilog\n")
	fmt.Fprintf(os.Stderr, "  check    Run structural design checks only\n")
}

func runEmit(args []string) error {
	fs := flag.NewFlagSet("emit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	emit := fs.String("emit", "firrtl", "output format (rtl|firrtl|verilog)")
	output := fs.String("o", "", "output file path (stdout when omitted)")
	top := fs.String("top", "", "top module override (defaults to the design's top attribute)")
	diagFormat := fs.String("diag-format", "text", "diagnostic output format (text|json)")
	firtool := fs.String("firtool", "", "path to firtool (optional, falls back to PATH lookup)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("emit command requires exactly one netlist file")
	}

	reporter := diag.NewReporter(os.Stderr, *diagFormat)
	design, err := prepareDesign(fs.Arg(0), *top, reporter)
	if err != nil {
		return err
	}

	switch *emit {
	case "rtl":
		return withOutputWriter(*output, func(w io.Writer) error {
			rtl.Dump(design, w)
			return nil
		})
	case "firrtl":
		if err := runDefaultPasses(design, reporter); err != nil {
			return err
		}
		return firrtl.EmitFile(design, *output, reporter)
	case "verilog":
		if *output == "" || *output == "-" {
			return fmt.Errorf("verilog emission requires -o")
		}
		if err := runDefaultPasses(design, reporter); err != nil {
			return err
		}
		opts := backend.Options{FirtoolPath: *firtool}
		_, err := emitVerilog(design, *output, opts, reporter)
		return err
	default:
		return fmt.Errorf("unknown emit format: %s", *emit)
	}
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	diagFormat := fs.String("diag-format", "text", "diagnostic output format (text|json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("check command requires exactly one netlist file")
	}

	reporter := diag.NewReporter(os.Stderr, *diagFormat)
	_, err := prepareDesign(fs.Arg(0), "", reporter)
	return err
}

// prepareDesign loads the netlist, applies the top override and runs
// the structural checks every command requires.
func prepareDesign(path, top string, reporter *diag.Reporter) (*rtl.Design, error) {
	design, err := frontend.Load(path, reporter)
	if err != nil {
		return nil, err
	}
	if top != "" {
		mod := design.Module(top)
		if mod == nil {
			return nil, fmt.Errorf("top module %s not found in design", top)
		}
		design.Top = mod
	}
	if err := validate.CheckDesign(design, reporter); err != nil {
		return nil, err
	}
	return design, nil
}

// runDefaultPasses rewrites constructs the FIRRTL backend has no
// rendering for. pmuxtree runs before every emission.
func runDefaultPasses(design *rtl.Design, reporter *diag.Reporter) error {
	passMgr := passes.NewManager()
	passMgr.Add(passes.NewPmuxTree(reporter))
	if err := passMgr.Run(design); err != nil {
		return err
	}
	if reporter.HasErrors() {
		return fmt.Errorf("passes reported errors")
	}
	return nil
}

func withOutputWriter(path string, fn func(io.Writer) error) error {
	w, cleanup, err := outputWriter(path)
	if err != nil {
		return err
	}
	if cleanup == nil {
		return fn(w)
	}
	err = fn(w)
	if closeErr := cleanup(); err == nil && closeErr != nil {
		err = closeErr
	}
	return err
}

func outputWriter(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
