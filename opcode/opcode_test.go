package opcode

import "testing"

func TestOpString(t *testing.T) {
	if Add.String() != "add" {
		t.Errorf("Add.String() = %q, want add", Add.String())
	}
	if got := Op(999).String(); got != "Unknown(999)" {
		t.Errorf("Op(999).String() = %q, want Unknown(999)", got)
	}
}

func TestOpClassification(t *testing.T) {
	tests := []struct {
		op                 Op
		isSync             bool
		isWorkgroupBarrier bool
		isMemoryFence      bool
		commandIsBool      bool
		resultIsBool       bool
	}{
		{Add, false, false, false, false, false},
		{Ballot, false, false, false, true, false},
		{All, false, false, false, true, true},
		{Elect, false, false, false, false, true},
		{AllEqual, false, false, false, false, true},
		{SubgroupBarrier, true, false, false, false, false},
		{SubgroupMemoryBarrier, true, false, true, false, false},
		{Barrier, true, true, false, false, false},
		{MemoryBarrier, true, true, true, false, false},
		{GroupMemoryBarrier, true, true, true, false, false},
		{Reconverge, false, false, false, false, false},
	}
	for _, tt := range tests {
		if got := tt.op.IsSync(); got != tt.isSync {
			t.Errorf("%v.IsSync() = %v, want %v", tt.op, got, tt.isSync)
		}
		if got := tt.op.IsWorkgroupBarrier(); got != tt.isWorkgroupBarrier {
			t.Errorf("%v.IsWorkgroupBarrier() = %v, want %v", tt.op, got, tt.isWorkgroupBarrier)
		}
		if got := tt.op.IsMemoryFence(); got != tt.isMemoryFence {
			t.Errorf("%v.IsMemoryFence() = %v, want %v", tt.op, got, tt.isMemoryFence)
		}
		if got := tt.op.CommandIsBool(); got != tt.commandIsBool {
			t.Errorf("%v.CommandIsBool() = %v, want %v", tt.op, got, tt.commandIsBool)
		}
		if got := tt.op.ResultIsBool(); got != tt.resultIsBool {
			t.Errorf("%v.ResultIsBool() = %v, want %v", tt.op, got, tt.resultIsBool)
		}
	}
}

func TestThreadStateString(t *testing.T) {
	tests := []struct {
		state ThreadState
		want  string
	}{
		{Running, "running"},
		{Halted, "halted"},
		{AtSubBarrier, "atSubBarrier"},
		{AtBarrier, "atBarrier"},
		{Finished, "finished"},
		{ThreadState(99), "Unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("ThreadState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
