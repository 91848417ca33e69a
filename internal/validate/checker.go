// Package validate verifies the structural invariants of a design
// before it is handed to a backend.
package validate

import (
	"fmt"

	"netfir/internal/diag"
	"netfir/internal/rtl"
)

// CheckDesign validates that every signal reference, width parameter
// and connection in the design is consistent. Violations are reported
// through the reporter; the returned error summarizes the count.
func CheckDesign(design *rtl.Design, reporter *diag.Reporter) error {
	if design == nil {
		return fmt.Errorf("validate: no design provided")
	}

	c := &checker{reporter: reporter}
	for _, module := range design.Modules {
		c.checkModule(design, module)
	}
	if c.errCount > 0 {
		return fmt.Errorf("validate: design check failed with %d issue(s)", c.errCount)
	}
	return nil
}

type checker struct {
	reporter *diag.Reporter
	errCount int
}

func (c *checker) error(format string, args ...interface{}) {
	c.errCount++
	c.reporter.Errorf(format, args...)
}

func (c *checker) checkModule(design *rtl.Design, module *rtl.Module) {
	for _, wire := range module.Wires {
		if wire.Width < 1 {
			c.error("%s.%s: wire width %d is below 1", module.Name, wire.Name, wire.Width)
		}
	}

	for _, cell := range module.Cells {
		for _, port := range cell.PortNames() {
			c.checkSig(module, fmt.Sprintf("cell %s port %s", cell.Name, port), cell.Connections[port])
		}
		c.checkCellWidths(module, cell)
		if cell.Type != "" && cell.Type[0] != '$' && design.Module(cell.Type) == nil {
			c.reporter.Warningf("%s.%s: instance of missing module %s", module.Name, cell.Name, cell.Type)
		}
	}

	for i, conn := range module.Connections {
		label := fmt.Sprintf("connection %d", i)
		c.checkSig(module, label, conn.LHS)
		c.checkSig(module, label, conn.RHS)
		if conn.LHS.Width() != conn.RHS.Width() {
			c.error("%s: %s assigns %d bits from %d bits", module.Name, label, conn.LHS.Width(), conn.RHS.Width())
		}
	}
}

// checkSig verifies that each chunk slices a wire owned by the module
// within range, and that literal chunks carry their declared width.
func (c *checker) checkSig(module *rtl.Module, label string, sig rtl.SigSpec) {
	for _, chunk := range sig {
		if chunk.Wire == nil {
			if len(chunk.Data) != chunk.Width {
				c.error("%s.%s: literal chunk declares %d bits but holds %d", module.Name, label, chunk.Width, len(chunk.Data))
			}
			continue
		}
		if module.Wire(chunk.Wire.Name) != chunk.Wire {
			c.error("%s.%s: references wire %s from outside the module", module.Name, label, chunk.Wire.Name)
			continue
		}
		if chunk.Offset < 0 || chunk.Width < 0 || chunk.Offset+chunk.Width > chunk.Wire.Width {
			c.error("%s.%s: slice [%d +: %d] exceeds wire %s of width %d",
				module.Name, label, chunk.Offset, chunk.Width, chunk.Wire.Name, chunk.Wire.Width)
		}
	}
}

// checkCellWidths matches the width parameters that primitive cells
// carry against the widths of the connected signals.
func (c *checker) checkCellWidths(module *rtl.Module, cell *rtl.Cell) {
	widthParams := []struct {
		param string
		port  string
	}{
		{"A_WIDTH", "A"},
		{"B_WIDTH", "B"},
		{"Y_WIDTH", "Y"},
	}
	for _, wp := range widthParams {
		param, port := wp.param, wp.port
		v, ok := cell.Param(param)
		if !ok {
			continue
		}
		sig, connected := cell.Connections[port]
		if !connected {
			continue
		}
		if sig.Width() != v.AsInt() {
			c.error("%s.%s: %s=%d but port %s has width %d",
				module.Name, cell.Name, param, v.AsInt(), port, sig.Width())
		}
	}

	if cell.Type == "$mux" {
		if v, ok := cell.Param("WIDTH"); ok {
			for _, port := range []string{"A", "B", "Y"} {
				if sig, connected := cell.Connections[port]; connected && sig.Width() != v.AsInt() {
					c.error("%s.%s: WIDTH=%d but port %s has width %d",
						module.Name, cell.Name, v.AsInt(), port, sig.Width())
				}
			}
			if sig, connected := cell.Connections["S"]; connected && sig.Width() != 1 {
				c.error("%s.%s: mux select has width %d", module.Name, cell.Name, sig.Width())
			}
		}
	}
}
