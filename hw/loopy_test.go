package hw

import "testing"

func TestLoopyIncX(t *testing.T) {
	var v loopy
	v.setCoarseX(30)
	v.incX()
	if v.coarsex() != 31 || v.nametable() != 0 {
		t.Errorf("coarsex=%d nt=%d, want 31/0", v.coarsex(), v.nametable())
	}
	v.incX()
	if v.coarsex() != 0 || v.nametable() != 1 {
		t.Errorf("coarsex=%d nt=%d, want 0/1 (horizontal toggle)", v.coarsex(), v.nametable())
	}
}

func TestLoopyIncY(t *testing.T) {
	var v loopy

	// fine Y spills into coarse Y.
	v.setFineY(7)
	v.incY()
	if v.finey() != 0 || v.coarsey() != 1 {
		t.Errorf("finey=%d coarsey=%d, want 0/1", v.finey(), v.coarsey())
	}

	// coarse Y 29 wraps and toggles the vertical nametable.
	v = 0
	v.setFineY(7)
	v.setCoarseY(29)
	v.incY()
	if v.coarsey() != 0 || v.nametable() != 2 {
		t.Errorf("coarsey=%d nt=%d, want 0/2 (vertical toggle)", v.coarsey(), v.nametable())
	}

	// coarse Y 31 wraps without toggling.
	v = 0
	v.setFineY(7)
	v.setCoarseY(31)
	v.incY()
	if v.coarsey() != 0 || v.nametable() != 0 {
		t.Errorf("coarsey=%d nt=%d, want 0/0 (no toggle)", v.coarsey(), v.nametable())
	}
}

func TestLoopyCopy(t *testing.T) {
	var v, tmp loopy
	tmp = 0x7FFF

	v.copyX(tmp)
	if v != 0x041F {
		t.Errorf("copyX: v = %04X, want 041F", uint16(v))
	}

	v = 0
	v.copyY(tmp)
	if v != 0x7BE0 {
		t.Errorf("copyY: v = %04X, want 7BE0", uint16(v))
	}
}
