// Package frontend loads netlists from the JSON interchange format
// written by the upstream synthesis environment.
package frontend

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"netfir/internal/diag"
	"netfir/internal/rtl"
)

type jsonDesign struct {
	Creator string                `json:"creator"`
	Modules map[string]jsonModule `json:"modules"`
}

type jsonModule struct {
	Attributes map[string]jsonValue `json:"attributes"`
	Ports      map[string]jsonPort  `json:"ports"`
	Cells      map[string]jsonCell  `json:"cells"`
	Netnames   map[string]jsonNet   `json:"netnames"`
}

type jsonPort struct {
	Direction string    `json:"direction"`
	Bits      []jsonBit `json:"bits"`
}

type jsonCell struct {
	Type        string               `json:"type"`
	Parameters  map[string]jsonValue `json:"parameters"`
	Attributes  map[string]jsonValue `json:"attributes"`
	Connections map[string][]jsonBit `json:"connections"`
}

type jsonNet struct {
	Bits       []jsonBit            `json:"bits"`
	Attributes map[string]jsonValue `json:"attributes"`
}

// jsonBit is one element of a "bits" array: a net number, or one of the
// constant strings "0", "1", "x", "z".
type jsonBit struct {
	Net     int
	IsConst bool
	State   rtl.State
}

func (b *jsonBit) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		b.IsConst = true
		switch s {
		case "0":
			b.State = rtl.S0
		case "1":
			b.State = rtl.S1
		case "x":
			b.State = rtl.Sx
		case "z":
			b.State = rtl.Sz
		default:
			return errors.Errorf("invalid constant bit %q", s)
		}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	b.Net = n
	return nil
}

// jsonValue is a parameter or attribute value: a number, a bit string
// over 0/1/x/z (MSB first), or an arbitrary string.
type jsonValue struct {
	raw json.RawMessage
}

func (v *jsonValue) UnmarshalJSON(data []byte) error {
	v.raw = append(v.raw[:0], data...)
	return nil
}

func (v jsonValue) Const() rtl.Const {
	if len(v.raw) == 0 {
		return nil
	}
	if v.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(v.raw, &s); err != nil {
			return nil
		}
		if c, ok := bitStringConst(s); ok {
			return c
		}
		return rtl.ConstFromString(s)
	}
	n, err := strconv.ParseInt(string(v.raw), 10, 64)
	if err != nil {
		return nil
	}
	return rtl.IntConst(int(n), 32)
}

func bitStringConst(s string) (rtl.Const, bool) {
	if s == "" {
		return nil, false
	}
	c := make(rtl.Const, len(s))
	for i := 0; i < len(s); i++ {
		switch s[len(s)-1-i] {
		case '0':
			c[i] = rtl.S0
		case '1':
			c[i] = rtl.S1
		case 'x':
			c[i] = rtl.Sx
		case 'z':
			c[i] = rtl.Sz
		default:
			return nil, false
		}
	}
	return c, true
}

// Load reads a JSON netlist file into a design.
func Load(path string, reporter *diag.Reporter) (*rtl.Design, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open netlist")
	}
	defer f.Close()
	return Parse(f, path, reporter)
}

// Parse reads a JSON netlist from r. name is used in error messages.
func Parse(r io.Reader, name string, reporter *diag.Reporter) (*rtl.Design, error) {
	var root jsonDesign
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.Wrapf(err, "parse %s", name)
	}
	if len(root.Modules) == 0 {
		return nil, errors.Errorf("%s: netlist contains no modules", name)
	}

	design := rtl.NewDesign()
	for _, modName := range sortedKeys(root.Modules) {
		if err := buildModule(design, modName, root.Modules[modName], reporter); err != nil {
			return nil, errors.Wrapf(err, "%s: module %s", name, modName)
		}
	}
	return design, nil
}

// wireBits pairs a created wire with the net numbers its bits carry, in
// canonicalization order.
type wireBits struct {
	wire *rtl.Wire
	bits []jsonBit
}

func buildModule(design *rtl.Design, name string, jm jsonModule, reporter *diag.Reporter) error {
	mod, err := design.AddModule(name)
	if err != nil {
		return err
	}
	for _, attr := range sortedKeys(jm.Attributes) {
		mod.Attributes[attr] = jm.Attributes[attr].Const()
	}
	if mod.BoolAttribute("top") {
		if design.Top != nil {
			reporter.Warningf("multiple top modules; keeping %s over %s", design.Top.Name, name)
		} else {
			design.Top = mod
		}
	}

	// Each net number resolves to one canonical wire bit. Input ports
	// claim first (they are the driven boundary), then the remaining
	// ports, then internal nets; every later holder of the same net is
	// stitched up with a connection below.
	bitmap := make(map[int]rtl.SigBit)
	var wires []wireBits

	portNames := sortedKeys(jm.Ports)
	portID := 0
	for _, pass := range []bool{true, false} {
		for _, portName := range portNames {
			jp := jm.Ports[portName]
			isInput := jp.Direction == "input" || jp.Direction == "inout"
			if isInput != pass {
				continue
			}
			wire, err := mod.AddWire(portName, len(jp.Bits))
			if err != nil {
				return err
			}
			portID++
			wire.PortID = portID
			switch jp.Direction {
			case "input":
				wire.PortInput = true
			case "output":
				wire.PortOutput = true
			case "inout":
				// Carried through; the backend rejects it.
				wire.PortInput = true
				wire.PortOutput = true
			default:
				return errors.Errorf("port %s has direction %q", portName, jp.Direction)
			}
			claimBits(bitmap, jp.Bits, wire)
			wires = append(wires, wireBits{wire, jp.Bits})
		}
	}

	for _, netName := range sortedKeys(jm.Netnames) {
		jn := jm.Netnames[netName]
		wire := mod.Wire(netName)
		if wire == nil {
			if wire, err = mod.AddWire(netName, len(jn.Bits)); err != nil {
				return err
			}
			wires = append(wires, wireBits{wire, jn.Bits})
		} else if wire.Width != len(jn.Bits) {
			return errors.Errorf("net %s redeclares port of width %d with %d bits", netName, wire.Width, len(jn.Bits))
		}
		for _, attr := range sortedKeys(jn.Attributes) {
			wire.Attributes[attr] = jn.Attributes[attr].Const()
		}
		claimBits(bitmap, jn.Bits, wire)
	}

	for _, wb := range wires {
		if wb.wire.PortInput {
			continue
		}
		if err := stitchWire(mod, wb, bitmap); err != nil {
			return err
		}
	}

	for _, cellName := range sortedKeys(jm.Cells) {
		jc := jm.Cells[cellName]
		cell, err := mod.AddCell(cellName, jc.Type)
		if err != nil {
			return err
		}
		for _, p := range sortedKeys(jc.Parameters) {
			cell.SetParam(p, jc.Parameters[p].Const())
		}
		for _, p := range sortedKeys(jc.Connections) {
			sig, err := sigFromBits(jc.Connections[p], bitmap)
			if err != nil {
				return errors.Wrapf(err, "cell %s port %s", cellName, p)
			}
			cell.SetPort(p, sig)
		}
	}
	return nil
}

func claimBits(bitmap map[int]rtl.SigBit, bits []jsonBit, wire *rtl.Wire) {
	for i, b := range bits {
		if b.IsConst {
			continue
		}
		if _, taken := bitmap[b.Net]; !taken {
			bitmap[b.Net] = rtl.SigBit{Wire: wire, Offset: i}
		}
	}
}

// stitchWire connects every bit of a non-input wire whose canonical
// holder is some other wire (or a constant). Bits the wire holds
// canonically are left for cells to drive directly.
func stitchWire(mod *rtl.Module, wb wireBits, bitmap map[int]rtl.SigBit) error {
	var lhs, rhs []rtl.SigBit
	flush := func() {
		if len(lhs) > 0 {
			mod.Connect(rtl.FromBits(lhs), rtl.FromBits(rhs))
			lhs, rhs = nil, nil
		}
	}
	for i, b := range wb.bits {
		self := rtl.SigBit{Wire: wb.wire, Offset: i}
		if b.IsConst {
			lhs = append(lhs, self)
			rhs = append(rhs, rtl.SigBit{State: b.State})
			continue
		}
		canon, ok := bitmap[b.Net]
		if !ok {
			return errors.Errorf("wire %s bit %d references unknown net %d", wb.wire.Name, i, b.Net)
		}
		if canon == self {
			flush()
			continue
		}
		lhs = append(lhs, self)
		rhs = append(rhs, canon)
	}
	flush()
	return nil
}

func sigFromBits(bits []jsonBit, bitmap map[int]rtl.SigBit) (rtl.SigSpec, error) {
	sbits := make([]rtl.SigBit, len(bits))
	for i, b := range bits {
		if b.IsConst {
			sbits[i] = rtl.SigBit{State: b.State}
			continue
		}
		canon, ok := bitmap[b.Net]
		if !ok {
			return nil, errors.Errorf("unknown net %d", b.Net)
		}
		sbits[i] = canon
	}
	return rtl.FromBits(sbits), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
