package passes

import (
	"fmt"

	"netfir/internal/diag"
	"netfir/internal/rtl"
)

// PmuxTree rewrites every $pmux cell into a balanced binary tree of
// $mux cells. The translator has no rendering for $pmux, so this pass
// runs before every emission.
//
// A $pmux selects slice i of B when select bit i is set and falls back
// to A when no bit is set. The rewrite appends A as one more data slice
// selected by the complement of the or-reduction of S, then splits the
// slices in half recursively, steering each level with the
// or-reduction of the lower half's select bits.
type PmuxTree struct {
	reporter *diag.Reporter
}

// NewPmuxTree constructs the pass.
func NewPmuxTree(reporter *diag.Reporter) *PmuxTree {
	return &PmuxTree{reporter: reporter}
}

// Name implements the Pass interface.
func (p *PmuxTree) Name() string { return "pmuxtree" }

// Run rewrites all modules of the design.
func (p *PmuxTree) Run(design *rtl.Design) error {
	if design == nil {
		return fmt.Errorf("pmuxtree requires a non-nil design")
	}
	for _, module := range design.Modules {
		if err := p.rewriteModule(module); err != nil {
			return err
		}
	}
	return nil
}

func (p *PmuxTree) rewriteModule(module *rtl.Module) error {
	var pmuxes []*rtl.Cell
	for _, cell := range module.Cells {
		if cell.Type == "$pmux" {
			pmuxes = append(pmuxes, cell)
		}
	}
	if len(pmuxes) == 0 {
		return nil
	}

	tb := &treeBuilder{module: module}
	for _, cell := range pmuxes {
		width, ok := cell.Param("WIDTH")
		if !ok {
			return fmt.Errorf("cell %s.%s is missing parameter WIDTH", module.Name, cell.Name)
		}
		stride := width.AsInt()

		sigData := cell.Port("B")
		sigSel := cell.Port("S")
		sigA := cell.Port("A")
		sigY := cell.Port("Y")
		if sigSel.Width() == 0 || sigY.Width() != stride {
			return fmt.Errorf("cell %s.%s has inconsistent pmux geometry", module.Name, cell.Name)
		}
		if sw, ok := cell.Param("S_WIDTH"); ok && sw.AsInt() != sigSel.Width() {
			p.reporter.Warningf("cell %s.%s: S_WIDTH=%d disagrees with select width %d",
				module.Name, cell.Name, sw.AsInt(), sigSel.Width())
		}

		if !sigA.IsFullyUndef() {
			sigData = append(append(rtl.SigSpec{}, sigData...), sigA...)
			selOr, err := tb.reduceOr(sigSel)
			if err != nil {
				return err
			}
			selNone, err := tb.not1(selOr)
			if err != nil {
				return err
			}
			sigSel = append(append(rtl.SigSpec{}, sigSel...), selNone...)
		}

		var sigOr rtl.SigSpec
		result, err := tb.muxTree(sigData, sigSel, stride, &sigOr)
		if err != nil {
			return err
		}
		module.Connect(sigY, result)
		module.RemoveCell(cell)
	}
	return nil
}

// treeBuilder mints the helper wires and cells of one module's rewrite.
type treeBuilder struct {
	module *rtl.Module
	next   int
}

func (tb *treeBuilder) muxTree(data, sel rtl.SigSpec, stride int, sigOr *rtl.SigSpec) (rtl.SigSpec, error) {
	if sel.Width() == 1 {
		*sigOr = append(*sigOr, sel...)
		return data, nil
	}

	leftSize := sel.Width() / 2
	rightSize := sel.Width() - leftSize

	leftData := data.Extract(0, stride*leftSize)
	rightData := data.Extract(stride*leftSize, stride*rightSize)
	leftSel := sel.Extract(0, leftSize)
	rightSel := sel.Extract(leftSize, rightSize)

	var leftOr rtl.SigSpec
	leftResult, err := tb.muxTree(leftData, leftSel, stride, &leftOr)
	if err != nil {
		return nil, err
	}
	rightResult, err := tb.muxTree(rightData, rightSel, stride, sigOr)
	if err != nil {
		return nil, err
	}
	*sigOr = append(*sigOr, leftOr...)

	steer, err := tb.reduceOr(leftOr)
	if err != nil {
		return nil, err
	}
	return tb.mux(rightResult, leftResult, steer, stride)
}

// mux creates a $mux cell selecting b over a when s is set.
func (tb *treeBuilder) mux(a, b, s rtl.SigSpec, width int) (rtl.SigSpec, error) {
	y, err := tb.freshWire(width)
	if err != nil {
		return nil, err
	}
	cell, err := tb.freshCell("$mux")
	if err != nil {
		return nil, err
	}
	cell.SetParam("WIDTH", rtl.IntConst(width, 32))
	cell.SetPort("A", a)
	cell.SetPort("B", b)
	cell.SetPort("S", s)
	cell.SetPort("Y", rtl.WireSig(y))
	return rtl.WireSig(y), nil
}

// reduceOr creates a $reduce_or cell over sig. A single-bit input
// passes through untouched.
func (tb *treeBuilder) reduceOr(sig rtl.SigSpec) (rtl.SigSpec, error) {
	if sig.Width() == 1 {
		return sig, nil
	}
	y, err := tb.freshWire(1)
	if err != nil {
		return nil, err
	}
	cell, err := tb.freshCell("$reduce_or")
	if err != nil {
		return nil, err
	}
	cell.SetParam("A_SIGNED", rtl.IntConst(0, 1))
	cell.SetParam("A_WIDTH", rtl.IntConst(sig.Width(), 32))
	cell.SetParam("Y_WIDTH", rtl.IntConst(1, 32))
	cell.SetPort("A", sig)
	cell.SetPort("Y", rtl.WireSig(y))
	return rtl.WireSig(y), nil
}

// not1 creates a $logic_not cell over a single-bit signal.
func (tb *treeBuilder) not1(sig rtl.SigSpec) (rtl.SigSpec, error) {
	y, err := tb.freshWire(1)
	if err != nil {
		return nil, err
	}
	cell, err := tb.freshCell("$logic_not")
	if err != nil {
		return nil, err
	}
	cell.SetParam("A_SIGNED", rtl.IntConst(0, 1))
	cell.SetParam("A_WIDTH", rtl.IntConst(sig.Width(), 32))
	cell.SetParam("Y_WIDTH", rtl.IntConst(1, 32))
	cell.SetPort("A", sig)
	cell.SetPort("Y", rtl.WireSig(y))
	return rtl.WireSig(y), nil
}

func (tb *treeBuilder) freshWire(width int) (*rtl.Wire, error) {
	for {
		name := fmt.Sprintf("$pmuxtree$%d", tb.next)
		tb.next++
		if tb.module.Wire(name) != nil {
			continue
		}
		return tb.module.AddWire(name, width)
	}
}

func (tb *treeBuilder) freshCell(typ string) (*rtl.Cell, error) {
	for {
		name := fmt.Sprintf("$pmuxtree$%d", tb.next)
		tb.next++
		if tb.module.Cell(name) != nil {
			continue
		}
		return tb.module.AddCell(name, typ)
	}
}
