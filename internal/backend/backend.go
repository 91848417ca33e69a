// Package backend lowers an emitted FIRRTL design to Verilog by
// driving an external firtool binary.
package backend

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"netfir/internal/diag"
	"netfir/internal/firrtl"
	"netfir/internal/rtl"
)

// Options configures how firtool is invoked.
type Options struct {
	// FirtoolPath optionally overrides the firtool binary. When empty
	// the backend looks it up on PATH.
	FirtoolPath string
	// ExtraArgs are passed to firtool verbatim, after the defaults.
	ExtraArgs []string
	// DumpFIRPath writes the FIRRTL handed to firtool to the provided
	// path when non-empty.
	DumpFIRPath string
	// KeepTemps preserves the intermediate directory on disk for
	// debugging.
	KeepTemps bool
}

// Result lists the artifacts produced during Verilog emission.
type Result struct {
	MainPath string
}

// EmitVerilog renders the design to FIRRTL and invokes firtool to
// produce Verilog at outputPath.
func EmitVerilog(design *rtl.Design, outputPath string, opts Options, reporter *diag.Reporter) (Result, error) {
	if design == nil {
		return Result{}, fmt.Errorf("backend: design is nil")
	}
	if outputPath == "" || outputPath == "-" {
		return Result{}, fmt.Errorf("backend: verilog emission requires an output path")
	}

	firtoolPath, err := resolveBinary(opts.FirtoolPath, "firtool")
	if err != nil {
		return Result{}, fmt.Errorf("backend: resolve firtool: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "netfir-firtool-*")
	if err != nil {
		return Result{}, fmt.Errorf("backend: create temp dir: %w", err)
	}
	if !opts.KeepTemps {
		defer os.RemoveAll(tempDir)
	}

	firPath := opts.DumpFIRPath
	if firPath == "" {
		firPath = filepath.Join(tempDir, "design.fir")
	} else if err := os.MkdirAll(filepath.Dir(firPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("backend: create fir dump dir: %w", err)
	}

	if err := firrtl.EmitFile(design, firPath, reporter); err != nil {
		return Result{}, fmt.Errorf("backend: emit firrtl: %w", err)
	}

	if err := runFirtool(firtoolPath, firPath, outputPath, opts.ExtraArgs); err != nil {
		return Result{}, err
	}
	return Result{MainPath: outputPath}, nil
}

func runFirtool(binary, inputPath, outputPath string, extraArgs []string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("backend: create verilog output dir: %w", err)
	}
	args := []string{inputPath, "--format=fir", "--verilog", "-o", outputPath}
	args = append(args, extraArgs...)
	cmd := exec.Command(binary, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("backend: firtool failed: %w", err)
	}
	return nil
}

func resolveBinary(explicit, fallback string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	path, err := exec.LookPath(fallback)
	if err != nil {
		return "", err
	}
	return path, nil
}
