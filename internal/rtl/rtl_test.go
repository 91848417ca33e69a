package rtl

import (
	"strings"
	"testing"
)

func TestIntConstRoundTrip(t *testing.T) {
	cases := []struct {
		v     int
		width int
	}{
		{0, 1}, {1, 1}, {10, 4}, {0xbeef, 16}, {5, 8},
	}
	for _, tc := range cases {
		c := IntConst(tc.v, tc.width)
		if c.Width() != tc.width {
			t.Errorf("IntConst(%d, %d) width = %d", tc.v, tc.width, c.Width())
		}
		if got := c.AsInt(); got != tc.v {
			t.Errorf("IntConst(%d, %d).AsInt() = %d", tc.v, tc.width, got)
		}
	}
}

func TestConstString(t *testing.T) {
	c := Const{S1, S0, Sx, Sz}
	if got := c.String(); got != "zx01" {
		t.Fatalf("Const.String() = %q, want zx01", got)
	}
	if c.IsFullyDef() {
		t.Fatalf("constant with x/z bits must not be fully defined")
	}
	if !IntConst(6, 3).IsFullyDef() {
		t.Fatalf("integer constant must be fully defined")
	}
}

func TestConstFromString(t *testing.T) {
	c := ConstFromString("A")
	if c.Width() != 8 || c.AsInt() != 'A' {
		t.Fatalf("ConstFromString(A) = width %d value %d", c.Width(), c.AsInt())
	}
	if got := ConstFromString("ab").AsInt(); got != 'a'<<8|'b' {
		t.Fatalf("ConstFromString(ab).AsInt() = %#x", got)
	}
}

func TestConstBitOutOfRange(t *testing.T) {
	c := IntConst(1, 2)
	if c.Bit(5) != Sx {
		t.Fatalf("out-of-range bit must read as x")
	}
	if c.Bit(-1) != Sx {
		t.Fatalf("negative bit index must read as x")
	}
}

func testModule(t *testing.T) *Module {
	t.Helper()
	d := NewDesign()
	m, err := d.AddModule("m")
	if err != nil {
		t.Fatalf("add module: %v", err)
	}
	return m
}

func TestSigSpecWidthAndBits(t *testing.T) {
	m := testModule(t)
	a, err := m.AddWire("a", 4)
	if err != nil {
		t.Fatalf("add wire: %v", err)
	}
	sig := append(SliceSig(a, 1, 2), ConstSig(IntConst(1, 3))...)
	if sig.Width() != 5 {
		t.Fatalf("width = %d, want 5", sig.Width())
	}
	bits := sig.Bits()
	if len(bits) != 5 {
		t.Fatalf("bits = %d, want 5", len(bits))
	}
	if bits[0] != (SigBit{Wire: a, Offset: 1}) || bits[1] != (SigBit{Wire: a, Offset: 2}) {
		t.Fatalf("wire bits wrong: %+v", bits[:2])
	}
	if bits[2].Wire != nil || bits[2].State != S1 || bits[3].State != S0 {
		t.Fatalf("literal bits wrong: %+v", bits[2:])
	}
}

func TestSigSpecExtractRegroups(t *testing.T) {
	m := testModule(t)
	a, err := m.AddWire("a", 4)
	if err != nil {
		t.Fatalf("add wire: %v", err)
	}
	b, err := m.AddWire("b", 2)
	if err != nil {
		t.Fatalf("add wire: %v", err)
	}
	sig := append(WireSig(a), WireSig(b)...)

	got := sig.Extract(2, 3)
	if len(got) != 2 {
		t.Fatalf("extract chunks = %d, want 2: %+v", len(got), got)
	}
	if got[0].Wire != a || got[0].Offset != 2 || got[0].Width != 2 {
		t.Fatalf("low chunk wrong: %+v", got[0])
	}
	if got[1].Wire != b || got[1].Offset != 0 || got[1].Width != 1 {
		t.Fatalf("high chunk wrong: %+v", got[1])
	}

	if out := sig.Extract(5, 3); out != nil {
		t.Fatalf("out-of-range extract must return nil, got %+v", out)
	}
}

func TestFromBitsMergesRuns(t *testing.T) {
	m := testModule(t)
	a, err := m.AddWire("a", 4)
	if err != nil {
		t.Fatalf("add wire: %v", err)
	}
	bits := []SigBit{
		{Wire: a, Offset: 0},
		{Wire: a, Offset: 1},
		{State: S1},
		{State: S0},
		{Wire: a, Offset: 3},
	}
	sig := FromBits(bits)
	if len(sig) != 3 {
		t.Fatalf("chunks = %d, want 3: %+v", len(sig), sig)
	}
	if sig[0].Width != 2 || sig[0].Offset != 0 {
		t.Fatalf("run merge failed: %+v", sig[0])
	}
	if sig[1].Wire != nil || sig[1].Data.String() != "01" {
		t.Fatalf("literal chunk wrong: %+v", sig[1])
	}
	if sig[2].Offset != 3 || sig[2].Width != 1 {
		t.Fatalf("tail chunk wrong: %+v", sig[2])
	}
}

func TestSigSpecConstQueries(t *testing.T) {
	m := testModule(t)
	a, err := m.AddWire("a", 2)
	if err != nil {
		t.Fatalf("add wire: %v", err)
	}
	if !ConstSig(IntConst(3, 2)).IsFullyConst() {
		t.Fatalf("literal signal must be fully const")
	}
	if WireSig(a).IsFullyConst() {
		t.Fatalf("wire signal must not be fully const")
	}
	if got := ConstSig(IntConst(3, 2)).AsConst().AsInt(); got != 3 {
		t.Fatalf("AsConst round trip = %d", got)
	}
	if WireSig(a).AsConst() != nil {
		t.Fatalf("AsConst of a wire signal must be nil")
	}
	if !ConstSig(Const{Sx, Sz}).IsFullyUndef() {
		t.Fatalf("x/z literal must be fully undef")
	}
	if ConstSig(Const{Sx, S1}).IsFullyUndef() {
		t.Fatalf("defined bit must defeat IsFullyUndef")
	}
}

func TestModuleMutators(t *testing.T) {
	d := NewDesign()
	m, err := d.AddModule("m")
	if err != nil {
		t.Fatalf("add module: %v", err)
	}
	if _, err := d.AddModule("m"); err == nil {
		t.Fatalf("duplicate module must fail")
	}
	if d.Module("m") != m {
		t.Fatalf("module lookup failed")
	}

	w, err := m.AddWire("w", 3)
	if err != nil {
		t.Fatalf("add wire: %v", err)
	}
	if _, err := m.AddWire("w", 3); err == nil {
		t.Fatalf("duplicate wire must fail")
	}
	if _, err := m.AddWire("bad", 0); err == nil {
		t.Fatalf("zero-width wire must fail")
	}
	if m.Wire("w") != w {
		t.Fatalf("wire lookup failed")
	}

	c, err := m.AddCell("c", "$not")
	if err != nil {
		t.Fatalf("add cell: %v", err)
	}
	if _, err := m.AddCell("c", "$not"); err == nil {
		t.Fatalf("duplicate cell must fail")
	}
	m.RemoveCell(c)
	if m.Cell("c") != nil || len(m.Cells) != 0 {
		t.Fatalf("cell removal failed")
	}

	m.Connect(WireSig(w), ConstSig(IntConst(5, 3)))
	if len(m.Connections) != 1 {
		t.Fatalf("connection not recorded")
	}
}

func TestSigString(t *testing.T) {
	m := testModule(t)
	a, err := m.AddWire("a", 4)
	if err != nil {
		t.Fatalf("add wire: %v", err)
	}
	sig := append(append(WireSig(a), SliceSig(a, 1, 2)...), ConstSig(IntConst(2, 2))...)
	got := SigString(sig)
	if got != "{2'10, a[2:1], a}" {
		t.Fatalf("SigString = %q", got)
	}
	if SigString(nil) != "{}" {
		t.Fatalf("empty signal renders as {}")
	}
}

func TestDumpListsModules(t *testing.T) {
	d := NewDesign()
	m, err := d.AddModule("m")
	if err != nil {
		t.Fatalf("add module: %v", err)
	}
	d.Top = m
	w, err := m.AddWire("clk", 1)
	if err != nil {
		t.Fatalf("add wire: %v", err)
	}
	w.PortID = 1
	w.PortInput = true
	cell, err := m.AddCell("u0", "$not")
	if err != nil {
		t.Fatalf("add cell: %v", err)
	}
	cell.SetParam("Y_WIDTH", IntConst(1, 32))
	cell.SetPort("A", WireSig(w))

	var b strings.Builder
	Dump(d, &b)
	out := b.String()
	for _, frag := range []string{"module m (top)", "in", "clk", "u0", "$not", "Y_WIDTH=1", ".A(clk)"} {
		if !strings.Contains(out, frag) {
			t.Errorf("dump missing %q:\n%s", frag, out)
		}
	}
}
