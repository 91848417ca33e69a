package backend

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"netfir/internal/diag"
	"netfir/internal/rtl"
)

func TestEmitVerilogRunsFirtool(t *testing.T) {
	requirePosix(t)

	design := testDesign(t)
	tmp := t.TempDir()

	firtool := writeScript(t, tmp, "firtool.sh", `#!/bin/sh
set -e
IN=""
OUT=""
while [ "$#" -gt 0 ]; do
  case "$1" in
    -o)
      OUT="$2"
      shift 2
      ;;
    --format=fir|--verilog)
      shift
      ;;
    *)
      IN="$1"
      shift
      ;;
  esac
done
if [ -z "$OUT" ]; then
  echo "missing -o" >&2
  exit 1
fi
{
  echo "// firtool output"
  cat "$IN"
} > "$OUT"
`)

	out := filepath.Join(tmp, "out.sv")
	res, err := EmitVerilog(design, out, Options{FirtoolPath: firtool}, diag.NewReporter(io.Discard, "text"))
	if err != nil {
		t.Fatalf("EmitVerilog failed: %v", err)
	}
	if res.MainPath != out {
		t.Fatalf("expected main path %s, got %s", out, res.MainPath)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "// firtool output") {
		t.Fatalf("expected firtool banner, got:\n%s", data)
	}
	if !strings.Contains(string(data), "circuit top:") {
		t.Fatalf("firtool must receive the emitted FIRRTL, got:\n%s", data)
	}
}

func TestEmitVerilogMissingFirtool(t *testing.T) {
	design := testDesign(t)
	opts := Options{FirtoolPath: filepath.Join(t.TempDir(), "missing")}
	out := filepath.Join(t.TempDir(), "out.sv")
	if _, err := EmitVerilog(design, out, opts, nil); err == nil {
		t.Fatalf("expected error when firtool is missing")
	}
}

func TestEmitVerilogRequiresOutputPath(t *testing.T) {
	if _, err := EmitVerilog(testDesign(t), "-", Options{}, nil); err == nil {
		t.Fatalf("expected error for missing output path")
	}
}

func TestEmitVerilogNilDesign(t *testing.T) {
	if _, err := EmitVerilog(nil, "out.sv", Options{}, nil); err == nil {
		t.Fatalf("expected error for nil design")
	}
}

func TestEmitVerilogDumpsFIR(t *testing.T) {
	requirePosix(t)

	design := testDesign(t)
	tmp := t.TempDir()
	firtool := writeScript(t, tmp, "firtool.sh", `#!/bin/sh
OUT=""
while [ "$#" -gt 0 ]; do
  case "$1" in
    -o) OUT="$2"; shift 2 ;;
    *) shift ;;
  esac
done
: > "$OUT"
`)
	firDump := filepath.Join(tmp, "dump", "design.fir")
	out := filepath.Join(tmp, "out.sv")
	opts := Options{FirtoolPath: firtool, DumpFIRPath: firDump}
	if _, err := EmitVerilog(design, out, opts, nil); err != nil {
		t.Fatalf("EmitVerilog failed: %v", err)
	}
	data, err := os.ReadFile(firDump)
	if err != nil {
		t.Fatalf("read fir dump: %v", err)
	}
	if !strings.Contains(string(data), "circuit top:") {
		t.Fatalf("fir dump missing circuit header:\n%s", data)
	}
}

func testDesign(t *testing.T) *rtl.Design {
	t.Helper()
	design := rtl.NewDesign()
	mod, err := design.AddModule("top")
	if err != nil {
		t.Fatalf("add module: %v", err)
	}
	design.Top = mod
	clk, err := mod.AddWire("clk", 1)
	if err != nil {
		t.Fatalf("add wire: %v", err)
	}
	clk.PortID = 1
	clk.PortInput = true
	return design
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func requirePosix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require a POSIX shell")
	}
}
