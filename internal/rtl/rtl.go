package rtl

import (
	"fmt"
	"sort"
)

// Design is the top-level netlist consisting of one or more modules.
// Modules preserves creation order, which is also emission order.
type Design struct {
	Modules []*Module
	Top     *Module

	modules map[string]*Module
}

// NewDesign returns an empty design.
func NewDesign() *Design {
	return &Design{modules: make(map[string]*Module)}
}

// AddModule creates a module with the given name.
func (d *Design) AddModule(name string) (*Module, error) {
	if _, ok := d.modules[name]; ok {
		return nil, fmt.Errorf("rtl: duplicate module %s", name)
	}
	m := &Module{
		Name:       name,
		Attributes: make(map[string]Const),
		wires:      make(map[string]*Wire),
		cells:      make(map[string]*Cell),
	}
	d.Modules = append(d.Modules, m)
	d.modules[name] = m
	return m, nil
}

// Module looks a module up by name, returning nil when absent.
func (d *Design) Module(name string) *Module {
	return d.modules[name]
}

// Connection is a point-to-point assignment LHS <- RHS.
type Connection struct {
	LHS SigSpec
	RHS SigSpec
}

// Module is a named collection of wires, cells and connections.
type Module struct {
	Name        string
	Wires       []*Wire
	Cells       []*Cell
	Connections []Connection
	Attributes  map[string]Const

	wires map[string]*Wire
	cells map[string]*Cell
}

// AddWire creates a wire of the given width in the module.
func (m *Module) AddWire(name string, width int) (*Wire, error) {
	if width < 1 {
		return nil, fmt.Errorf("rtl: wire %s.%s has width %d", m.Name, name, width)
	}
	if _, ok := m.wires[name]; ok {
		return nil, fmt.Errorf("rtl: duplicate wire %s.%s", m.Name, name)
	}
	w := &Wire{Name: name, Width: width, Attributes: make(map[string]Const)}
	m.Wires = append(m.Wires, w)
	m.wires[name] = w
	return w, nil
}

// Wire looks a wire up by name, returning nil when absent.
func (m *Module) Wire(name string) *Wire {
	return m.wires[name]
}

// AddCell creates a cell of the given type in the module.
func (m *Module) AddCell(name, typ string) (*Cell, error) {
	if _, ok := m.cells[name]; ok {
		return nil, fmt.Errorf("rtl: duplicate cell %s.%s", m.Name, name)
	}
	c := &Cell{
		Name:        name,
		Type:        typ,
		Parameters:  make(map[string]Const),
		Connections: make(map[string]SigSpec),
	}
	m.Cells = append(m.Cells, c)
	m.cells[name] = c
	return c, nil
}

// Cell looks a cell up by name, returning nil when absent.
func (m *Module) Cell(name string) *Cell {
	return m.cells[name]
}

// RemoveCell deletes a cell from the module.
func (m *Module) RemoveCell(c *Cell) {
	for i, cc := range m.Cells {
		if cc == c {
			m.Cells = append(m.Cells[:i], m.Cells[i+1:]...)
			delete(m.cells, c.Name)
			return
		}
	}
}

// Connect records the assignment lhs <- rhs.
func (m *Module) Connect(lhs, rhs SigSpec) {
	m.Connections = append(m.Connections, Connection{LHS: lhs, RHS: rhs})
}

// BoolAttribute reports whether the named attribute is present and
// nonzero.
func (m *Module) BoolAttribute(name string) bool {
	c, ok := m.Attributes[name]
	return ok && c.AsBool()
}

// Wire is a named signal carrier. PortID is nonzero for module ports;
// port order follows PortID.
type Wire struct {
	Name       string
	Width      int
	PortID     int
	PortInput  bool
	PortOutput bool
	Attributes map[string]Const
}

// IsPort reports whether the wire is a module port.
func (w *Wire) IsPort() bool { return w.PortID != 0 }

// Cell is a primitive operator or a subcircuit instance. Types that
// begin with '$' are primitives; anything else names another module in
// the design.
type Cell struct {
	Name        string
	Type        string
	Parameters  map[string]Const
	Connections map[string]SigSpec
}

// SetParam sets a parameter value.
func (c *Cell) SetParam(name string, v Const) {
	c.Parameters[name] = v
}

// Param returns a parameter value and whether it is present.
func (c *Cell) Param(name string) (Const, bool) {
	v, ok := c.Parameters[name]
	return v, ok
}

// SetPort connects a signal to a cell port.
func (c *Cell) SetPort(name string, sig SigSpec) {
	c.Connections[name] = sig
}

// Port returns the signal connected to a port, or nil.
func (c *Cell) Port(name string) SigSpec {
	return c.Connections[name]
}

// PortNames returns the connected port names in sorted order so that
// iteration is deterministic.
func (c *Cell) PortNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParamNames returns the parameter names in sorted order.
func (c *Cell) ParamNames() []string {
	names := make([]string, 0, len(c.Parameters))
	for name := range c.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
