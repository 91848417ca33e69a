package rtl

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a simple human-readable representation of the design.
func Dump(design *Design, w io.Writer) {
	if design == nil {
		fmt.Fprintln(w, "<nil design>")
		return
	}
	for _, module := range design.Modules {
		top := ""
		if module == design.Top {
			top = " (top)"
		}
		fmt.Fprintf(w, "module %s%s\n", module.Name, top)
		dumpWires(module, w)
		dumpCells(module, w)
		dumpConnections(module, w)
		fmt.Fprintln(w)
	}
}

func dumpWires(module *Module, w io.Writer) {
	if len(module.Wires) == 0 {
		return
	}
	fmt.Fprintln(w, "  wires:")
	for _, wire := range module.Wires {
		fmt.Fprintf(w, "    %-3s %-12s %db\n", wireRole(wire), wire.Name, wire.Width)
	}
}

func dumpCells(module *Module, w io.Writer) {
	if len(module.Cells) == 0 {
		return
	}
	fmt.Fprintln(w, "  cells:")
	for _, cell := range module.Cells {
		params := ""
		if len(cell.Parameters) > 0 {
			pairs := make([]string, 0, len(cell.Parameters))
			for _, name := range cell.ParamNames() {
				pairs = append(pairs, fmt.Sprintf("%s=%d", name, cell.Parameters[name].AsInt()))
			}
			params = " [" + strings.Join(pairs, " ") + "]"
		}
		fmt.Fprintf(w, "    %-12s %s%s\n", cell.Name, cell.Type, params)
		for _, port := range cell.PortNames() {
			fmt.Fprintf(w, "      .%s(%s)\n", port, SigString(cell.Connections[port]))
		}
	}
}

func dumpConnections(module *Module, w io.Writer) {
	if len(module.Connections) == 0 {
		return
	}
	fmt.Fprintln(w, "  connections:")
	for _, conn := range module.Connections {
		fmt.Fprintf(w, "    %s <- %s\n", SigString(conn.LHS), SigString(conn.RHS))
	}
}

// SigString renders a signal for diagnostics, MSB-first chunk order the
// way a reader of netlist listings expects.
func SigString(sig SigSpec) string {
	if len(sig) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(sig))
	for i := len(sig) - 1; i >= 0; i-- {
		ch := sig[i]
		switch {
		case ch.Wire == nil:
			parts = append(parts, fmt.Sprintf("%d'%s", ch.Width, ch.Data.String()))
		case ch.Offset == 0 && ch.Width == ch.Wire.Width:
			parts = append(parts, ch.Wire.Name)
		case ch.Width == 1:
			parts = append(parts, fmt.Sprintf("%s[%d]", ch.Wire.Name, ch.Offset))
		default:
			parts = append(parts, fmt.Sprintf("%s[%d:%d]", ch.Wire.Name, ch.Offset+ch.Width-1, ch.Offset))
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func wireRole(w *Wire) string {
	switch {
	case w.PortInput && w.PortOutput:
		return "io"
	case w.PortInput:
		return "in"
	case w.PortOutput:
		return "out"
	default:
		return ""
	}
}
