package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/akhildatla/intcode/internal/testutil"
	"github.com/akhildatla/intcode/pkg/vm"
)

func TestREPL_New(t *testing.T) {
	program := testutil.SimpleProgram()
	r := New(program)
	if r == nil {
		t.Fatal("New returned nil")
	}
	if r.vm.State() != vm.StateRunning {
		t.Errorf("expected running, got %v", r.vm.State())
	}

	// Poking the debugger does not touch the caller's slice.
	var out bytes.Buffer
	r.handleCommand("poke 0 7", &out)
	testutil.AssertInt64Equal(t, 1, program[0])
}

func TestREPL_HandleCommand_Help(t *testing.T) {
	r := New(testutil.SimpleProgram())
	var out bytes.Buffer

	for _, cmd := range []string{"help", "h", "?"} {
		out.Reset()
		if !r.handleCommand(cmd, &out) {
			t.Errorf("expected help command '%s' to be handled", cmd)
		}
		if !strings.Contains(out.String(), "Intcode Debugger Commands") {
			t.Errorf("expected help text, got: %s", out.String())
		}
	}
}

func TestREPL_HandleCommand_Quit(t *testing.T) {
	for _, cmd := range []string{"quit", "exit", "q"} {
		r := New(testutil.SimpleProgram())
		var out bytes.Buffer
		if !r.handleCommand(cmd, &out) {
			t.Errorf("expected quit command '%s' to be handled", cmd)
		}
		if !r.done {
			t.Errorf("expected '%s' to end the session", cmd)
		}
		if !strings.Contains(out.String(), "Goodbye") {
			t.Errorf("expected goodbye message, got: %s", out.String())
		}
	}
}

func TestREPL_HandleCommand_Step(t *testing.T) {
	r := New(testutil.SimpleProgram())
	var out bytes.Buffer

	r.handleCommand("step", &out)
	if !strings.Contains(out.String(), "0000: ADD") {
		t.Errorf("expected ADD trace, got: %s", out.String())
	}
	testutil.AssertInt64Equal(t, 4, r.vm.PC())

	out.Reset()
	r.handleCommand("step 5", &out)
	if !strings.Contains(out.String(), "0004: MUL") {
		t.Errorf("expected MUL trace, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "Program is halted") {
		t.Errorf("expected halted notice, got: %s", out.String())
	}
	v, _ := r.vm.Read(0)
	testutil.AssertInt64Equal(t, 3500, v)
}

func TestREPL_HandleCommand_StepUsage(t *testing.T) {
	r := New(testutil.SimpleProgram())
	var out bytes.Buffer

	for _, cmd := range []string{"step x", "step 0"} {
		out.Reset()
		r.handleCommand(cmd, &out)
		if !strings.Contains(out.String(), "Usage:") {
			t.Errorf("%s: expected usage message, got: %s", cmd, out.String())
		}
	}
	testutil.AssertInt64Equal(t, 0, r.vm.Steps())
}

func TestREPL_HandleCommand_StepFault(t *testing.T) {
	r := New([]int64{1, 0, 0, 100, 99})
	var out bytes.Buffer

	r.handleCommand("step", &out)
	if !strings.Contains(out.String(), "fault:") {
		t.Errorf("expected fault message, got: %s", out.String())
	}

	out.Reset()
	r.handleCommand("state", &out)
	if !strings.Contains(out.String(), "state = faulted") {
		t.Errorf("expected faulted state, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "out of bounds") {
		t.Errorf("expected fault detail, got: %s", out.String())
	}
}

func TestREPL_HandleCommand_Run(t *testing.T) {
	r := New(testutil.SimpleProgram())
	var out bytes.Buffer

	r.handleCommand("run", &out)
	if !strings.Contains(out.String(), "halted after 3 steps") {
		t.Errorf("expected halt summary, got: %s", out.String())
	}

	out.Reset()
	r.handleCommand("pc", &out)
	if strings.TrimSpace(out.String()) != "pc = 8" {
		t.Errorf("expected pc = 8, got: %s", out.String())
	}
}

func TestREPL_HandleCommand_PeekPoke(t *testing.T) {
	r := New([]int64{1, 0, 0, 0, 99})
	var out bytes.Buffer

	r.handleCommand("poke 2 4", &out)
	if !strings.Contains(out.String(), "mem[2] = 4") {
		t.Errorf("expected poke confirmation, got: %s", out.String())
	}

	r.handleCommand("run", &out)
	out.Reset()
	r.handleCommand("peek 0", &out)
	if strings.TrimSpace(out.String()) != "mem[0] = 100" {
		t.Errorf("expected mem[0] = 100, got: %s", out.String())
	}
}

func TestREPL_HandleCommand_PeekPokeErrors(t *testing.T) {
	r := New([]int64{99})
	var out bytes.Buffer

	tests := []struct {
		cmd  string
		want string
	}{
		{"peek", "Usage:"},
		{"peek x", "invalid address"},
		{"peek 5", "out of bounds"},
		{"poke 0", "Usage:"},
		{"poke x 1", "invalid address"},
		{"poke 0 y", "invalid value"},
		{"poke -1 3", "out of bounds"},
	}

	for _, tt := range tests {
		out.Reset()
		r.handleCommand(tt.cmd, &out)
		if !strings.Contains(out.String(), tt.want) {
			t.Errorf("%s: expected %q, got: %s", tt.cmd, tt.want, out.String())
		}
	}
}

func TestREPL_HandleCommand_DumpAndDisasm(t *testing.T) {
	r := New([]int64{1, 0, 0, 0, 99})
	var out bytes.Buffer

	r.handleCommand("dump", &out)
	if !strings.Contains(out.String(), "memory:") {
		t.Errorf("expected memory dump, got: %s", out.String())
	}

	out.Reset()
	r.handleCommand("disasm", &out)
	if !strings.Contains(out.String(), "ADD") || !strings.Contains(out.String(), "HALT") {
		t.Errorf("expected disassembly, got: %s", out.String())
	}
}

func TestREPL_HandleCommand_Level(t *testing.T) {
	r := New([]int64{1, 0, 0, 0, 99})
	var out bytes.Buffer

	r.handleCommand("level 1", &out)
	if !strings.Contains(out.String(), "Debug level 1") {
		t.Errorf("expected level confirmation, got: %s", out.String())
	}

	r.vm.SetOutput(&out)
	out.Reset()
	r.handleCommand("run", &out)
	if !strings.Contains(out.String(), "program halted") {
		t.Errorf("expected halt notice at level 1, got: %s", out.String())
	}

	out.Reset()
	r.handleCommand("level -1", &out)
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("expected usage message, got: %s", out.String())
	}
}

func TestREPL_HandleCommand_Reset(t *testing.T) {
	r := New(testutil.SimpleProgram())
	var out bytes.Buffer

	r.handleCommand("run", &out)
	r.handleCommand("reset", &out)
	if !strings.Contains(out.String(), "Program reloaded") {
		t.Errorf("expected reload confirmation, got: %s", out.String())
	}
	testutil.AssertMemory(t, testutil.SimpleProgram(), r.vm.Memory().Snapshot())
	if r.vm.State() != vm.StateRunning || r.vm.PC() != 0 {
		t.Errorf("expected fresh VM, got state %v pc %d", r.vm.State(), r.vm.PC())
	}
}

func TestREPL_HandleCommand_History(t *testing.T) {
	r := New(testutil.SimpleProgram())
	var out bytes.Buffer

	r.history = []string{"step", "peek 0", "run"}
	r.handleCommand("history", &out)
	output := out.String()
	if !strings.Contains(output, "  1: step") {
		t.Errorf("expected step in history, got: %s", output)
	}
	if !strings.Contains(output, "  3: run") {
		t.Errorf("expected run in history, got: %s", output)
	}
}

func TestREPL_HandleCommand_Unknown(t *testing.T) {
	r := New(testutil.SimpleProgram())
	var out bytes.Buffer

	if r.handleCommand("frobnicate", &out) {
		t.Error("expected unknown command to be unhandled")
	}
}

func TestREPL_Start(t *testing.T) {
	r := New(testutil.SimpleProgram())
	in := strings.NewReader("step\n\nbogus\nrun\npeek 0\nquit\npeek 1\n")
	var out bytes.Buffer

	r.Start(in, &out)

	output := out.String()
	if !strings.Contains(output, "12 cells loaded") {
		t.Errorf("expected banner, got: %s", output)
	}
	if !strings.Contains(output, "Unknown command: bogus") {
		t.Errorf("expected unknown command message, got: %s", output)
	}
	if !strings.Contains(output, "mem[0] = 3500") {
		t.Errorf("expected final value, got: %s", output)
	}
	if strings.Contains(output, "mem[1] =") {
		t.Errorf("expected input after quit to be ignored, got: %s", output)
	}
	if len(r.history) != 5 {
		t.Errorf("expected 5 history entries, got %d", len(r.history))
	}
}

func TestREPL_Start_EOF(t *testing.T) {
	r := New(testutil.SimpleProgram())
	var out bytes.Buffer

	r.Start(strings.NewReader(""), &out)
	if !strings.HasSuffix(out.String(), prompt) {
		t.Errorf("expected trailing prompt, got: %q", out.String())
	}
}
