// Package firrtl translates an elaborated rtl.Design into FIRRTL text.
//
// The netlist and FIRRTL disagree on shift widths, signedness and
// comparison results; the per-cell translation here reconciles those
// semantics bit-exactly. Wires are always declared unsigned and
// signedness is applied at use sites with asSInt/asUInt.
package firrtl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"netfir/internal/diag"
	"netfir/internal/rtl"
)

// firrtlMaxDshWidthError is one greater than the widest shift-amount
// expression FIRRTL accepts for dshl.
const firrtlMaxDshWidthError = 20

type direction uint8

const (
	dirNone  direction = 0x0
	dirIn    direction = 0x1
	dirOut   direction = 0x2
	dirInOut direction = 0x3
)

// portDirection reports a port's direction with respect to the module
// that declares it.
func portDirection(module *rtl.Module, port string) direction {
	wire := module.Wire(port)
	dir := dirNone
	if wire != nil && wire.IsPort() {
		if wire.PortInput {
			dir |= dirIn
		}
		if wire.PortOutput {
			dir |= dirOut
		}
	}
	return dir
}

// driver locates one bit of an emitted expression: the id it was bound
// to and the bit offset within that id.
type driver struct {
	id  string
	bit int
}

// worker emits one module. The four buffers preserve the required
// statement order: ports, wires, cell assignments, instance bodies and
// final wire drives.
type worker struct {
	module   *rtl.Module
	design   *rtl.Design
	ns       *namespace
	reporter *diag.Reporter

	reverse  map[rtl.SigBit]driver
	unconnID string
	indent   string

	portDecls []string
	wireDecls []string
	cellExprs []string
	wireExprs []string
}

func newWorker(module *rtl.Module, design *rtl.Design, ns *namespace, reporter *diag.Reporter) *worker {
	return &worker{
		module:   module,
		design:   design,
		ns:       ns,
		reporter: reporter,
		reverse:  make(map[rtl.SigBit]driver),
		indent:   "    ",
	}
}

// Emit writes the FIRRTL rendition of the design to w. The reporter
// receives non-fatal diagnostics; unsupported constructs that cannot be
// expressed return an error and abort emission.
func Emit(design *rtl.Design, w io.Writer, reporter *diag.Reporter) error {
	if design == nil || len(design.Modules) == 0 {
		return fmt.Errorf("firrtl: design has no modules")
	}

	ns := newNamespace()

	// Stabilize module and port names before any cell-local name can
	// shadow them.
	top := design.Top
	var last *rtl.Module
	for _, module := range design.Modules {
		ns.id(module.Name)
		last = module
		if top == nil && module.BoolAttribute("top") {
			top = module
		}
		for _, wire := range module.Wires {
			if wire.IsPort() {
				ns.id(wire.Name)
			}
		}
	}
	if top == nil {
		top = last
	}

	if _, err := fmt.Fprintf(w, "circuit %s:\n", ns.id(top.Name)); err != nil {
		return err
	}

	for _, module := range design.Modules {
		fw := newWorker(module, design, ns, reporter)
		if err := fw.run(w); err != nil {
			return err
		}
	}
	return nil
}

// EmitFile writes the design to outputPath, or to stdout when the path
// is empty or "-".
func EmitFile(design *rtl.Design, outputPath string, reporter *diag.Reporter) error {
	var w io.Writer
	if outputPath == "" || outputPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return Emit(design, w, reporter)
}

func (fw *worker) registerReverseWireMap(id string, sig rtl.SigSpec) {
	for i, bit := range sig.Bits() {
		if bit.Wire != nil {
			fw.reverse[bit] = driver{id: id, bit: i}
		}
	}
}

func (fw *worker) run(w io.Writer) error {
	var out strings.Builder
	fmt.Fprintf(&out, "  module %s:\n", fw.ns.id(fw.module.Name))

	for _, wire := range fw.module.Wires {
		wireName := fw.ns.id(wire.Name)
		// FIRRTL has no initial values on wires.
		if init, ok := wire.Attributes["init"]; ok {
			fw.reporter.Warningf("initial value (%s) for (%s.%s) not supported",
				init.String(), fw.module.Name, wire.Name)
		}
		if wire.IsPort() {
			if wire.PortInput && wire.PortOutput {
				return fmt.Errorf("firrtl: module port %s.%s is inout", fw.module.Name, wire.Name)
			}
			dir := "output"
			if wire.PortInput {
				dir = "input"
			}
			fw.portDecls = append(fw.portDecls, fmt.Sprintf("%s%s %s: UInt<%d>\n", fw.indent, dir, wireName, wire.Width))
		} else {
			fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%swire %s: UInt<%d>\n", fw.indent, wireName, wire.Width))
		}
	}

	for _, cell := range fw.module.Cells {
		if err := fw.processCell(cell); err != nil {
			return err
		}
	}

	for _, conn := range fw.module.Connections {
		yID := fw.ns.fresh()
		yWidth := conn.LHS.Width()
		expr := fw.makeExpr(conn.RHS)

		fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%swire %s: UInt<%d>\n", fw.indent, yID, yWidth))
		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s <= %s\n", fw.indent, yID, expr))
		fw.registerReverseWireMap(yID, conn.LHS)
	}

	fw.reassembleWires()

	for _, buf := range [][]string{fw.portDecls, fw.wireDecls, fw.cellExprs, fw.wireExprs} {
		for _, s := range buf {
			out.WriteString(s)
		}
		out.WriteString("\n")
	}
	if _, err := io.WriteString(w, out.String()); err != nil {
		return err
	}
	return nil
}

// reassembleWires walks every non-input wire and reconstitutes its
// driving expression from the reverse wire map, grouping maximal
// contiguous runs of bits that are consecutive within one emitted id.
// Undriven bits all share one lazily allocated invalid sentinel.
func (fw *worker) reassembleWires() {
	for _, wire := range fw.module.Wires {
		if wire.PortInput {
			continue
		}

		expr := ""
		cursor := 0
		isValid := false
		madeUnconnID := false

		for cursor < wire.Width {
			chunkWidth := 1
			var newExpr string

			startBit := rtl.SigBit{Wire: wire, Offset: cursor}
			if start, ok := fw.reverse[startBit]; ok {
				for cursor+chunkWidth < wire.Width {
					stopBit := rtl.SigBit{Wire: wire, Offset: cursor + chunkWidth}
					stop, ok := fw.reverse[stopBit]
					if !ok || stop.id != start.id || stop.bit-chunkWidth != start.bit {
						break
					}
					chunkWidth++
				}
				newExpr = fmt.Sprintf("bits(%s, %d, %d)", start.id, start.bit+chunkWidth-1, start.bit)
				isValid = true
			} else {
				if fw.unconnID == "" {
					fw.unconnID = fw.ns.fresh()
					madeUnconnID = true
				}
				newExpr = fw.unconnID
			}

			if expr == "" {
				expr = newExpr
			} else {
				expr = "cat(" + newExpr + ", " + expr + ")"
			}
			cursor += chunkWidth
		}

		if isValid {
			if madeUnconnID {
				fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%swire %s: UInt<1>\n", fw.indent, fw.unconnID))
				fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%s%s is invalid\n", fw.indent, fw.unconnID))
			}
			fw.wireExprs = append(fw.wireExprs, fmt.Sprintf("%s%s <= %s\n", fw.indent, fw.ns.id(wire.Name), expr))
		} else {
			if madeUnconnID {
				fw.unconnID = ""
			}
			fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%s%s is invalid\n", fw.indent, fw.ns.id(wire.Name)))
		}
	}
}

var unaryCells = map[string]bool{
	"$not": true, "$logic_not": true, "$neg": true, "$reduce_and": true,
	"$reduce_or": true, "$reduce_xor": true, "$reduce_bool": true, "$reduce_xnor": true,
}

var binaryCells = map[string]bool{
	"$add": true, "$sub": true, "$mul": true, "$div": true, "$mod": true,
	"$xor": true, "$and": true, "$or": true, "$eq": true, "$eqx": true,
	"$gt": true, "$ge": true, "$lt": true, "$le": true, "$ne": true, "$nex": true,
	"$shr": true, "$sshr": true, "$sshl": true, "$shl": true,
	"$logic_and": true, "$logic_or": true,
}

func (fw *worker) processCell(cell *rtl.Cell) error {
	switch {
	case !strings.HasPrefix(cell.Type, "$"), strings.HasPrefix(cell.Type, "$paramod"):
		return fw.processInstance(cell)
	case unaryCells[cell.Type]:
		return fw.processUnary(cell)
	case binaryCells[cell.Type]:
		return fw.processBinary(cell)
	case cell.Type == "$mux":
		return fw.processMux(cell)
	case cell.Type == "$mem":
		return fw.processMem(cell)
	case cell.Type == "$dff":
		return fw.processDff(cell)
	case cell.Type == "$shiftx":
		return fw.processShiftx(cell)
	case cell.Type == "$shift":
		return fw.processShift(cell)
	case cell.Type == "$memwr" || cell.Type == "$memrd":
		// Superseded by $mem after the upstream memory passes.
		return nil
	default:
		fw.reporter.Warningf("cell type not supported: %s (%s.%s)", cell.Type, fw.module.Name, cell.Name)
		return nil
	}
}

// processInstance emits an inst statement plus one assignment per
// connected port, with assignment direction taken from the callee.
func (fw *worker) processInstance(cell *rtl.Cell) error {
	cellType := fw.ns.id(cell.Type)
	var instanceOf string
	// A parameterized callee encodes its parent module in the type.
	if strings.HasPrefix(cell.Type, "$paramod") {
		var b strings.Builder
		for _, ch := range cellType {
			switch ch {
			case '\\', '=', '\'', '$':
				b.WriteByte('_')
			default:
				b.WriteRune(ch)
			}
		}
		instanceOf = b.String()
	} else {
		instanceOf = cellType
	}

	cellName := fw.ns.id(cell.Name)
	instModule := fw.design.Module(cell.Type)
	if instModule == nil {
		fw.reporter.Warningf("no instance for %s.%s", cellType, cellName)
		return nil
	}
	fw.wireExprs = append(fw.wireExprs, fmt.Sprintf("%sinst %s of %s\n", fw.indent, cellName, instanceOf))

	for _, portName := range cell.PortNames() {
		sig := cell.Connections[portName]
		if sig.Width() == 0 {
			continue
		}
		firstName := cellName + "." + fw.ns.id(portName)

		// An output port drives the connected signal: record the cell
		// port as the driver and let the wire walk stitch it back. An
		// input port is assigned directly from the operand expression.
		switch dir := portDirection(instModule, portName); dir {
		case dirInOut:
			fw.reporter.Warningf("instance port connection %s.%s is INOUT; treating as OUT", cellType, portName)
			fw.registerReverseWireMap(firstName, sig)
		case dirOut:
			fw.registerReverseWireMap(firstName, sig)
		case dirNone:
			fw.reporter.Warningf("instance port connection %s.%s is NODIRECTION; treating as IN", cellType, portName)
			fw.wireExprs = append(fw.wireExprs, fmt.Sprintf("%s%s <= %s\n", fw.indent, firstName, fw.makeExpr(sig)))
		case dirIn:
			fw.wireExprs = append(fw.wireExprs, fmt.Sprintf("%s%s <= %s\n", fw.indent, firstName, fw.makeExpr(sig)))
		default:
			return fmt.Errorf("firrtl: instance port %s.%s has unrecognized connection direction 0x%x", cellType, portName, dir)
		}
	}
	fw.wireExprs = append(fw.wireExprs, "\n")
	return nil
}

func (fw *worker) processUnary(cell *rtl.Cell) error {
	yID := fw.ns.id(cell.Name)
	isSigned, err := fw.boolParam(cell, "A_SIGNED")
	if err != nil {
		return err
	}
	yWidth, err := fw.intParam(cell, "Y_WIDTH")
	if err != nil {
		return err
	}
	aSig, err := fw.cellPort(cell, "A")
	if err != nil {
		return err
	}
	aExpr := fw.makeExpr(aSig)
	fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%swire %s: UInt<%d>\n", fw.indent, yID, yWidth))

	if isSigned {
		aExpr = "asSInt(" + aExpr + ")"
	}

	// A single-bit boolean result must not control padding.
	if !((cell.Type == "$reduce_bool" || cell.Type == "$logic_not") && yWidth == 1) {
		aExpr = fmt.Sprintf("pad(%s, %d)", aExpr, yWidth)
	}

	var primop string
	alwaysUint := false
	switch cell.Type {
	case "$not":
		primop = "not"
	case "$neg":
		primop = "neg"
	case "$logic_not":
		primop = "eq"
		aExpr += ", UInt(0)"
	case "$reduce_and":
		primop = "andr"
	case "$reduce_or":
		primop = "orr"
	case "$reduce_xor":
		primop = "xorr"
	case "$reduce_xnor":
		primop = "not"
		aExpr = "xorr(" + aExpr + ")"
	case "$reduce_bool":
		primop = "neq"
		// The comparand takes the sign and width of A.
		aWidth, err := fw.intParam(cell, "A_WIDTH")
		if err != nil {
			return err
		}
		sign := 'U'
		if isSigned {
			sign = 'S'
		}
		aExpr += fmt.Sprintf(", %cInt<%d>(0)", sign, aWidth)
	}

	expr := fmt.Sprintf("%s(%s)", primop, aExpr)
	if isSigned && !alwaysUint {
		expr = "asUInt(" + expr + ")"
	}

	fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s <= %s\n", fw.indent, yID, expr))
	ySig, err := fw.cellPort(cell, "Y")
	if err != nil {
		return err
	}
	fw.registerReverseWireMap(yID, ySig)
	return nil
}

func (fw *worker) processBinary(cell *rtl.Cell) error {
	yID := fw.ns.id(cell.Name)
	isSigned, err := fw.boolParam(cell, "A_SIGNED")
	if err != nil {
		return err
	}
	bSigned, err := fw.boolParam(cell, "B_SIGNED")
	if err != nil {
		return err
	}
	yWidth, err := fw.intParam(cell, "Y_WIDTH")
	if err != nil {
		return err
	}
	aWidth, err := fw.intParam(cell, "A_WIDTH")
	if err != nil {
		return err
	}
	bPaddedWidth, err := fw.intParam(cell, "B_WIDTH")
	if err != nil {
		return err
	}
	aSig, err := fw.cellPort(cell, "A")
	if err != nil {
		return err
	}
	bSig, err := fw.cellPort(cell, "B")
	if err != nil {
		return err
	}
	aExpr := fw.makeExpr(aSig)
	bExpr := fw.makeExpr(bSig)
	fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%swire %s: UInt<%d>\n", fw.indent, yID, yWidth))

	isShift := cell.Type == "$shr" || cell.Type == "$sshr" || cell.Type == "$shl" || cell.Type == "$sshl"

	if isSigned {
		aExpr = "asSInt(" + aExpr + ")"
	}
	// A shift amount is never signed and needn't be padded to the
	// result width.
	if !isShift {
		if bSigned {
			bExpr = "asSInt(" + bExpr + ")"
		}
		if bPaddedWidth < yWidth {
			bPaddedWidth = yWidth
		}
	}
	if aWidth < yWidth {
		aExpr = fmt.Sprintf("pad(%s, %d)", aExpr, yWidth)
	}
	if isSigned && cell.Type == "$shr" {
		aExpr = "asUInt(" + aExpr + ")"
	}

	var primop string
	alwaysUint := false
	extractYBits := false
	switch cell.Type {
	case "$add":
		primop = "add"
	case "$sub":
		primop = "sub"
	case "$mul":
		primop = "mul"
	case "$div":
		primop = "div"
	case "$mod":
		primop = "rem"
	case "$and":
		primop = "and"
		alwaysUint = true
	case "$or":
		primop = "or"
		alwaysUint = true
	case "$xor":
		primop = "xor"
		alwaysUint = true
	case "$eq", "$eqx":
		primop = "eq"
		alwaysUint = true
	case "$ne", "$nex":
		primop = "neq"
		alwaysUint = true
	case "$gt":
		primop = "gt"
		alwaysUint = true
	case "$ge":
		primop = "geq"
		alwaysUint = true
	case "$lt":
		primop = "lt"
		alwaysUint = true
	case "$le":
		primop = "leq"
		alwaysUint = true
	case "$shl", "$sshl":
		// FIRRTL widens the shift result by the shift amount; the
		// un-widened portion is extracted below.
		extractYBits = true
		if bSig.IsFullyConst() {
			primop = "shl"
		} else {
			primop = "dshl"
			bExpr = fw.genDshl(bExpr, bPaddedWidth)
		}
	case "$shr", "$sshr":
		if bSig.IsFullyConst() {
			primop = "shr"
		} else {
			primop = "dshr"
		}
	case "$logic_and":
		primop = "and"
		aExpr = "neq(" + aExpr + ", UInt(0))"
		bExpr = "neq(" + bExpr + ", UInt(0))"
		alwaysUint = true
	case "$logic_or":
		primop = "or"
		aExpr = "neq(" + aExpr + ", UInt(0))"
		bExpr = "neq(" + bExpr + ", UInt(0))"
		alwaysUint = true
	}

	if !bSigned {
		bExpr = "asUInt(" + bExpr + ")"
	}

	expr := fmt.Sprintf("%s(%s, %s)", primop, aExpr, bExpr)

	if extractYBits {
		expr = fmt.Sprintf("bits(%s, %d, 0)", expr, yWidth-1)
	}

	// FIRRTL's sub returns a signed result, so $sub always converts
	// back at the boundary.
	if (isSigned && !alwaysUint) || cell.Type == "$sub" {
		expr = "asUInt(" + expr + ")"
	}

	fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s <= %s\n", fw.indent, yID, expr))
	ySig, err := fw.cellPort(cell, "Y")
	if err != nil {
		return err
	}
	fw.registerReverseWireMap(yID, ySig)
	return nil
}

// genDshl guards a dynamic left-shift amount against FIRRTL's width cap
// by saturating at the maximum representable amount.
func (fw *worker) genDshl(bExpr string, bPaddedWidth int) string {
	if bPaddedWidth < firrtlMaxDshWidthError {
		return bExpr
	}
	maxShiftWidthBits := firrtlMaxDshWidthError - 1
	maxShift := fmt.Sprintf("UInt<%d>(%d)", maxShiftWidthBits, (1<<uint(maxShiftWidthBits))-1)
	return fmt.Sprintf("mux(gt(%s, %s), %s, bits(%s, %d, 0))", bExpr, maxShift, maxShift, bExpr, maxShiftWidthBits-1)
}

func (fw *worker) processMux(cell *rtl.Cell) error {
	yID := fw.ns.id(cell.Name)
	width, err := fw.intParam(cell, "WIDTH")
	if err != nil {
		return err
	}
	aSig, err := fw.cellPort(cell, "A")
	if err != nil {
		return err
	}
	bSig, err := fw.cellPort(cell, "B")
	if err != nil {
		return err
	}
	sSig, err := fw.cellPort(cell, "S")
	if err != nil {
		return err
	}
	fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%swire %s: UInt<%d>\n", fw.indent, yID, width))

	// FIRRTL argument order is (cond, then, else): B is the selected
	// value, A the default.
	expr := fmt.Sprintf("mux(%s, %s, %s)", fw.makeExpr(sSig), fw.makeExpr(bSig), fw.makeExpr(aSig))

	fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s <= %s\n", fw.indent, yID, expr))
	ySig, err := fw.cellPort(cell, "Y")
	if err != nil {
		return err
	}
	fw.registerReverseWireMap(yID, ySig)
	return nil
}

func (fw *worker) processDff(cell *rtl.Cell) error {
	clkpol, err := fw.boolParam(cell, "CLK_POLARITY")
	if err != nil {
		return err
	}
	if !clkpol {
		return fmt.Errorf("firrtl: negative edge clock on FF %s.%s", fw.module.Name, cell.Name)
	}

	qID := fw.ns.id(cell.Name)
	width, err := fw.intParam(cell, "WIDTH")
	if err != nil {
		return err
	}
	dSig, err := fw.cellPort(cell, "D")
	if err != nil {
		return err
	}
	clkSig, err := fw.cellPort(cell, "CLK")
	if err != nil {
		return err
	}
	clkExpr := "asClock(" + fw.makeExpr(clkSig) + ")"

	fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%sreg %s: UInt<%d>, %s\n", fw.indent, qID, width, clkExpr))
	fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s <= %s\n", fw.indent, qID, fw.makeExpr(dSig)))
	qSig, err := fw.cellPort(cell, "Q")
	if err != nil {
		return err
	}
	fw.registerReverseWireMap(qID, qSig)
	return nil
}

func (fw *worker) processMem(cell *rtl.Cell) error {
	memID := fw.ns.id(cell.Name)
	abits, err := fw.intParam(cell, "ABITS")
	if err != nil {
		return err
	}
	width, err := fw.intParam(cell, "WIDTH")
	if err != nil {
		return err
	}
	size, err := fw.intParam(cell, "SIZE")
	if err != nil {
		return err
	}
	rdPorts, err := fw.intParam(cell, "RD_PORTS")
	if err != nil {
		return err
	}
	wrPorts, err := fw.intParam(cell, "WR_PORTS")
	if err != nil {
		return err
	}

	initData, err := fw.constParam(cell, "INIT")
	if err != nil {
		return err
	}
	for _, bit := range initData {
		if bit != rtl.Sx {
			return fmt.Errorf("firrtl: memory with initialization data: %s.%s", fw.module.Name, cell.Name)
		}
	}

	rdClkEnable, err := fw.constParam(cell, "RD_CLK_ENABLE")
	if err != nil {
		return err
	}
	wrClkEnable, err := fw.constParam(cell, "WR_CLK_ENABLE")
	if err != nil {
		return err
	}
	wrClkPolarity, err := fw.constParam(cell, "WR_CLK_POLARITY")
	if err != nil {
		return err
	}

	offset, err := fw.intParam(cell, "OFFSET")
	if err != nil {
		return err
	}
	if offset != 0 {
		return fmt.Errorf("firrtl: memory with nonzero offset: %s.%s", fw.module.Name, cell.Name)
	}

	fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%smem %s:\n", fw.indent, memID))
	fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("      data-type => UInt<%d>\n", width))
	fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("      depth => %d\n", size))
	for i := 0; i < rdPorts; i++ {
		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("      reader => r%d\n", i))
	}
	for i := 0; i < wrPorts; i++ {
		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("      writer => w%d\n", i))
	}
	fw.cellExprs = append(fw.cellExprs, "      read-latency => 0\n")
	fw.cellExprs = append(fw.cellExprs, "      write-latency => 1\n")
	fw.cellExprs = append(fw.cellExprs, "      read-under-write => undefined\n")

	rdData, err := fw.cellPort(cell, "RD_DATA")
	if err != nil {
		return err
	}
	rdAddr, err := fw.cellPort(cell, "RD_ADDR")
	if err != nil {
		return err
	}
	for i := 0; i < rdPorts; i++ {
		if rdClkEnable.Bit(i) != rtl.S0 {
			return fmt.Errorf("firrtl: clocked read port %d on memory %s.%s", i, fw.module.Name, cell.Name)
		}

		dataSig := rdData.Extract(i*width, width)
		addrExpr := fw.makeExpr(rdAddr.Extract(i*abits, abits))

		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s.r%d.addr <= %s\n", fw.indent, memID, i, addrExpr))
		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s.r%d.en <= UInt<1>(1)\n", fw.indent, memID, i))
		// Combinational read; the clock is irrelevant.
		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s.r%d.clk <= asClock(UInt<1>(0))\n", fw.indent, memID, i))

		fw.registerReverseWireMap(fmt.Sprintf("%s.r%d.data", memID, i), dataSig)
	}

	wrAddr, err := fw.cellPort(cell, "WR_ADDR")
	if err != nil {
		return err
	}
	wrData, err := fw.cellPort(cell, "WR_DATA")
	if err != nil {
		return err
	}
	wrClk, err := fw.cellPort(cell, "WR_CLK")
	if err != nil {
		return err
	}
	wrEn, err := fw.cellPort(cell, "WR_EN")
	if err != nil {
		return err
	}
	for i := 0; i < wrPorts; i++ {
		if wrClkEnable.Bit(i) != rtl.S1 {
			return fmt.Errorf("firrtl: unclocked write port %d on memory %s.%s", i, fw.module.Name, cell.Name)
		}
		if wrClkPolarity.Bit(i) != rtl.S1 {
			return fmt.Errorf("firrtl: negedge write port %d on memory %s.%s", i, fw.module.Name, cell.Name)
		}

		addrExpr := fw.makeExpr(wrAddr.Extract(i*abits, abits))
		dataExpr := fw.makeExpr(wrData.Extract(i*width, width))
		clkExpr := fw.makeExpr(wrClk.Extract(i, 1))

		wenSig := wrEn.Extract(i*width, width)
		wenBits := wenSig.Bits()
		for j := 1; j < len(wenBits); j++ {
			if wenBits[j] != wenBits[0] {
				return fmt.Errorf("firrtl: complex write enable on port %d on memory %s.%s", i, fw.module.Name, cell.Name)
			}
		}
		wenExpr := fw.makeExpr(wenSig.Extract(0, 1))

		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s.w%d.addr <= %s\n", fw.indent, memID, i, addrExpr))
		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s.w%d.data <= %s\n", fw.indent, memID, i, dataExpr))
		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s.w%d.en <= %s\n", fw.indent, memID, i, wenExpr))
		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s.w%d.mask <= UInt<1>(1)\n", fw.indent, memID, i))
		fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s.w%d.clk <= asClock(%s)\n", fw.indent, memID, i, clkExpr))
	}
	return nil
}

// processShiftx extracts a Y_WIDTH window of A starting at index B.
// A negative signed index yields an invalid result.
func (fw *worker) processShiftx(cell *rtl.Cell) error {
	yID := fw.ns.id(cell.Name)
	yWidth, err := fw.intParam(cell, "Y_WIDTH")
	if err != nil {
		return err
	}
	aSig, err := fw.cellPort(cell, "A")
	if err != nil {
		return err
	}
	bSig, err := fw.cellPort(cell, "B")
	if err != nil {
		return err
	}
	bSigned, err := fw.boolParam(cell, "B_SIGNED")
	if err != nil {
		return err
	}
	aExpr := fw.makeExpr(aSig)
	bExpr := fw.makeExpr(bSig)
	fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%swire %s: UInt<%d>\n", fw.indent, yID, yWidth))

	if bSigned {
		bWidth, err := fw.intParam(cell, "B_WIDTH")
		if err != nil {
			return err
		}
		// Constrain the selection by testing the sign bit.
		bSign := bWidth - 1
		bExpr = fmt.Sprintf("validif(not(bits(%s, %d, %d)), %s)", bExpr, bSign, bSign, bExpr)
	}
	expr := fmt.Sprintf("dshr(%s, %s)", aExpr, bExpr)

	fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s <= %s\n", fw.indent, yID, expr))
	ySig, err := fw.cellPort(cell, "Y")
	if err != nil {
		return err
	}
	fw.registerReverseWireMap(yID, ySig)
	return nil
}

// processShift emits a right shift of A by B, where a signed negative B
// shifts left instead.
func (fw *worker) processShift(cell *rtl.Cell) error {
	yID := fw.ns.id(cell.Name)
	yWidth, err := fw.intParam(cell, "Y_WIDTH")
	if err != nil {
		return err
	}
	aSig, err := fw.cellPort(cell, "A")
	if err != nil {
		return err
	}
	bSig, err := fw.cellPort(cell, "B")
	if err != nil {
		return err
	}
	bSigned, err := fw.boolParam(cell, "B_SIGNED")
	if err != nil {
		return err
	}
	bPaddedWidth, err := fw.intParam(cell, "B_WIDTH")
	if err != nil {
		return err
	}
	aExpr := fw.makeExpr(aSig)
	bExpr := fw.makeExpr(bSig)
	fw.wireDecls = append(fw.wireDecls, fmt.Sprintf("%swire %s: UInt<%d>\n", fw.indent, yID, yWidth))

	var expr string
	if bSigned {
		dshl := fmt.Sprintf("bits(dshl(%s, %s), 0, %d)", aExpr, fw.genDshl(bExpr, bPaddedWidth), yWidth)
		dshr := fmt.Sprintf("dshr(%s, %s)", aExpr, bExpr)
		expr = fmt.Sprintf("mux(%s < 0, %s, %s)", bExpr, dshl, dshr)
	} else {
		expr = fmt.Sprintf("dshr(%s, %s)", aExpr, bExpr)
	}

	fw.cellExprs = append(fw.cellExprs, fmt.Sprintf("%s%s <= %s\n", fw.indent, yID, expr))
	ySig, err := fw.cellPort(cell, "Y")
	if err != nil {
		return err
	}
	fw.registerReverseWireMap(yID, ySig)
	return nil
}

func (fw *worker) intParam(cell *rtl.Cell, name string) (int, error) {
	v, ok := cell.Param(name)
	if !ok {
		return 0, fmt.Errorf("firrtl: cell %s.%s (%s) is missing parameter %s", fw.module.Name, cell.Name, cell.Type, name)
	}
	return v.AsInt(), nil
}

func (fw *worker) boolParam(cell *rtl.Cell, name string) (bool, error) {
	v, ok := cell.Param(name)
	if !ok {
		return false, fmt.Errorf("firrtl: cell %s.%s (%s) is missing parameter %s", fw.module.Name, cell.Name, cell.Type, name)
	}
	return v.AsBool(), nil
}

func (fw *worker) constParam(cell *rtl.Cell, name string) (rtl.Const, error) {
	v, ok := cell.Param(name)
	if !ok {
		return nil, fmt.Errorf("firrtl: cell %s.%s (%s) is missing parameter %s", fw.module.Name, cell.Name, cell.Type, name)
	}
	return v, nil
}

func (fw *worker) cellPort(cell *rtl.Cell, name string) (rtl.SigSpec, error) {
	sig, ok := cell.Connections[name]
	if !ok {
		return nil, fmt.Errorf("firrtl: cell %s.%s (%s) has no connection on port %s", fw.module.Name, cell.Name, cell.Type, name)
	}
	return sig, nil
}
