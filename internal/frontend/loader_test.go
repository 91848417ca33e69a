package frontend

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"netfir/internal/diag"
	"netfir/internal/rtl"
)

func parseString(t *testing.T, src string) *rtl.Design {
	t.Helper()
	design, err := Parse(strings.NewReader(src), "test.json", diag.NewReporter(io.Discard, "text"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return design
}

const adderNetlist = `{
  "modules": {
    "top": {
      "attributes": {"top": 1},
      "ports": {
        "a": {"direction": "input", "bits": [2, 3]},
        "b": {"direction": "input", "bits": [4, 5]},
        "y": {"direction": "output", "bits": [6, 7]}
      },
      "cells": {
        "add0": {
          "type": "$add",
          "parameters": {"A_SIGNED": 0, "A_WIDTH": 2, "B_SIGNED": 0, "B_WIDTH": 2, "Y_WIDTH": 2},
          "connections": {"A": [2, 3], "B": [4, 5], "Y": [6, 7]}
        }
      },
      "netnames": {
        "a": {"bits": [2, 3]},
        "b": {"bits": [4, 5]},
        "y": {"bits": [6, 7]}
      }
    }
  }
}`

func TestParseAdder(t *testing.T) {
	design := parseString(t, adderNetlist)
	mod := design.Module("top")
	if mod == nil {
		t.Fatalf("module top missing")
	}
	if design.Top != mod {
		t.Fatalf("top attribute must select the top module")
	}

	a := mod.Wire("a")
	if a == nil || !a.PortInput || a.Width != 2 {
		t.Fatalf("input port a wrong: %+v", a)
	}
	y := mod.Wire("y")
	if y == nil || !y.PortOutput || y.PortInput {
		t.Fatalf("output port y wrong: %+v", y)
	}

	cell := mod.Cell("add0")
	if cell == nil || cell.Type != "$add" {
		t.Fatalf("cell add0 missing")
	}
	if w, _ := cell.Param("Y_WIDTH"); w.AsInt() != 2 {
		t.Fatalf("Y_WIDTH = %d", w.AsInt())
	}
	if got := rtl.SigString(cell.Port("A")); got != "a" {
		t.Fatalf("port A resolves to %q", got)
	}
	if got := rtl.SigString(cell.Port("Y")); got != "y" {
		t.Fatalf("port Y resolves to %q", got)
	}
	if len(mod.Connections) != 0 {
		t.Fatalf("no stitch connections expected, got %d", len(mod.Connections))
	}
}

func TestParseAliasedOutputGetsConnection(t *testing.T) {
	design := parseString(t, `{
  "modules": {
    "top": {
      "ports": {
        "a": {"direction": "input", "bits": [2, 3]},
        "y": {"direction": "output", "bits": [2, 3]}
      },
      "cells": {},
      "netnames": {}
    }
  }
}`)
	mod := design.Module("top")
	if len(mod.Connections) != 1 {
		t.Fatalf("expected one stitch connection, got %d", len(mod.Connections))
	}
	conn := mod.Connections[0]
	if rtl.SigString(conn.LHS) != "y" || rtl.SigString(conn.RHS) != "a" {
		t.Fatalf("stitch connection wrong: %s <- %s", rtl.SigString(conn.LHS), rtl.SigString(conn.RHS))
	}
}

func TestParseConstantBits(t *testing.T) {
	design := parseString(t, `{
  "modules": {
    "top": {
      "ports": {
        "y": {"direction": "output", "bits": ["1", "0", 2]}
      },
      "cells": {},
      "netnames": {
        "w": {"bits": [2]}
      }
    }
  }
}`)
	mod := design.Module("top")
	if len(mod.Connections) != 2 {
		t.Fatalf("expected constant stitch plus alias stitch, got %d connections", len(mod.Connections))
	}
	conn := mod.Connections[0]
	if got := rtl.SigString(conn.RHS); got != "2'01" {
		t.Fatalf("constant stitch rhs = %q", got)
	}
	if got := rtl.SigString(conn.LHS); got != "y[1:0]" {
		t.Fatalf("constant stitch lhs = %q", got)
	}
	alias := mod.Connections[1]
	if rtl.SigString(alias.LHS) != "w" || rtl.SigString(alias.RHS) != "y[2]" {
		t.Fatalf("alias stitch wrong: %s <- %s", rtl.SigString(alias.LHS), rtl.SigString(alias.RHS))
	}
}

func TestParseBitStringParameter(t *testing.T) {
	design := parseString(t, `{
  "modules": {
    "top": {
      "ports": {"a": {"direction": "input", "bits": [2]}},
      "cells": {
        "c0": {
          "type": "$mem_stub",
          "parameters": {"INIT": "xxxx", "WIDTH": "00000010"},
          "connections": {"A": [2]}
        }
      },
      "netnames": {}
    }
  }
}`)
	cell := design.Module("top").Cell("c0")
	initVal, ok := cell.Param("INIT")
	if !ok || initVal.Width() != 4 || initVal.IsFullyDef() {
		t.Fatalf("INIT parameter wrong: %v", initVal)
	}
	widthVal, _ := cell.Param("WIDTH")
	if widthVal.AsInt() != 2 {
		t.Fatalf("bit-string WIDTH = %d, want 2", widthVal.AsInt())
	}
}

func TestParseInoutPortIsCarried(t *testing.T) {
	design := parseString(t, `{
  "modules": {
    "top": {
      "ports": {"p": {"direction": "inout", "bits": [2]}},
      "cells": {},
      "netnames": {}
    }
  }
}`)
	p := design.Module("top").Wire("p")
	if p == nil || !p.PortInput || !p.PortOutput {
		t.Fatalf("inout port must carry both roles: %+v", p)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		frag string
	}{
		{"empty", `{}`, "no modules"},
		{"badjson", `{`, "parse"},
		{"unknown net", `{
  "modules": {"top": {
    "ports": {},
    "cells": {"c": {"type": "$not", "parameters": {}, "connections": {"A": [9]}}},
    "netnames": {}
  }}
}`, "unknown net"},
		{"bad direction", `{
  "modules": {"top": {
    "ports": {"p": {"direction": "sideways", "bits": [2]}},
    "cells": {}, "netnames": {}
  }}
}`, "direction"},
		{"width clash", `{
  "modules": {"top": {
    "ports": {"p": {"direction": "input", "bits": [2, 3]}},
    "cells": {},
    "netnames": {"p": {"bits": [2]}}
  }}
}`, "redeclares"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.src), "bad.json", diag.NewReporter(io.Discard, "text"))
			if err == nil || !strings.Contains(err.Error(), tc.frag) {
				t.Fatalf("expected error containing %q, got %v", tc.frag, err)
			}
		})
	}
}

func TestMultipleTopModulesWarn(t *testing.T) {
	var diags bytes.Buffer
	src := `{
  "modules": {
    "m1": {"attributes": {"top": 1}, "ports": {}, "cells": {}, "netnames": {}},
    "m2": {"attributes": {"top": 1}, "ports": {}, "cells": {}, "netnames": {}}
  }
}`
	design, err := Parse(strings.NewReader(src), "test.json", diag.NewReporter(&diags, "text"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if design.Top == nil || design.Top.Name != "m1" {
		t.Fatalf("first top module must win, got %v", design.Top)
	}
	if !strings.Contains(diags.String(), "multiple top modules") {
		t.Fatalf("expected multiple-top warning, got %q", diags.String())
	}
}
