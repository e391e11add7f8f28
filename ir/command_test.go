package ir

import (
	"testing"

	"github.com/gogpu/shadersim/opcode"
	"github.com/gogpu/shadersim/valuetype"
)

func TestComputeLaneMasks(t *testing.T) {
	// SubgroupSize = 8, lane 3: 0b00001000
	eq, ge, gt, le, lt := ComputeLaneMasks(3, 8)
	if eq != 0b00001000 {
		t.Errorf("eq = %08b, want 00001000", eq)
	}
	if le != 0b00001111 {
		t.Errorf("le = %08b, want 00001111", le)
	}
	if lt != 0b00000111 {
		t.Errorf("lt = %08b, want 00000111", lt)
	}
	if ge != 0b11111000 {
		t.Errorf("ge = %08b, want 11111000", ge)
	}
	if gt != 0b11110000 {
		t.Errorf("gt = %08b, want 11110000", gt)
	}
}

func TestComputeLaneMasksTopLane(t *testing.T) {
	// SubgroupSize = 32, lane 31: the le mask must wrap to all-ones, not
	// underflow to zero.
	eq, ge, _, le, lt := ComputeLaneMasks(31, 32)
	if eq != 1<<31 {
		t.Errorf("eq = %032b, want bit 31 set", eq)
	}
	if le != ^uint32(0) {
		t.Errorf("le = %032b, want all ones", le)
	}
	if lt != ^uint32(0)>>1 {
		t.Errorf("lt = %032b, want all but bit 31", lt)
	}
	if ge != 1<<31 {
		t.Errorf("ge = %032b, want only bit 31", ge)
	}
}

func TestNewThreadContext(t *testing.T) {
	ctx := NewThreadContext([3]uint32{5, 0, 0}, [3]uint32{5, 0, 0}, 2, 8)
	if ctx.SubgroupInvocationID != 2 {
		t.Errorf("SubgroupInvocationID = %d, want 2", ctx.SubgroupInvocationID)
	}
	if ctx.EqMask != 0b00000100 {
		t.Errorf("EqMask = %08b, want 00000100", ctx.EqMask)
	}
}

func TestQuad(t *testing.T) {
	q := Quad(0xFF)
	want := [4]uint32{0xFF, 0, 0, 0}
	if q != want {
		t.Errorf("Quad(0xFF) = %v, want %v", q, want)
	}
}

func TestCommandConstructors(t *testing.T) {
	rc := NewReconverge(7)
	if rc.Op != opcode.Reconverge || rc.OpID != 7 {
		t.Errorf("NewReconverge = %+v", rc)
	}

	sc := NewSyncCommand(9, opcode.Barrier)
	if sc.Op != opcode.Barrier || sc.OpID != 9 {
		t.Errorf("NewSyncCommand = %+v", sc)
	}

	scalar := NewScalarCommand(11, opcode.Add, valuetype.I32, valuetype.FromI32(42), 0)
	if scalar.Val.I32() != 42 || scalar.Type != valuetype.I32 {
		t.Errorf("NewScalarCommand = %+v", scalar)
	}

	b := NewBoolCommand(13, opcode.Ballot, true)
	if !b.Bool || b.Op != opcode.Ballot {
		t.Errorf("NewBoolCommand = %+v", b)
	}
}
