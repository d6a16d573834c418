package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akhildatla/intcode/internal/testutil"
	"github.com/akhildatla/intcode/pkg/embed"
	"github.com/akhildatla/intcode/pkg/loader"
	"github.com/akhildatla/intcode/pkg/vm"
)

// runCLI invokes the CLI in-process and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestCLI_Help(t *testing.T) {
	out, err := runCLI(t, "", "help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"Intcode", "run", "search", "snapshot", "repl"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output should contain %q", want)
		}
	}

	noArgs, err := runCLI(t, "")
	if err != nil || noArgs != out {
		t.Errorf("expected usage with no arguments, got %v", err)
	}
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "intcode version dev") {
		t.Errorf("expected version output, got: %s", out)
	}
}

func TestCLI_UnknownCommand(t *testing.T) {
	_, err := runCLI(t, "", "frobnicate")
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected unknown command error, got %v", err)
	}
}

func TestCLI_Run(t *testing.T) {
	path := testutil.TempProgram(t, "1,9,10,3,2,3,11,0,99,30,40,50")

	out, err := runCLI(t, "", "run", path)
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if strings.TrimSpace(out) != "3500" {
		t.Errorf("expected 3500, got: %s", out)
	}
}

func TestCLI_Run_NounVerb(t *testing.T) {
	path := testutil.TempProgram(t, testutil.GravityAssist())

	out, err := runCLI(t, "", "run", "-noun", "12", "-verb", "2", path)
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if strings.TrimSpace(out) != "27" {
		t.Errorf("expected 27, got: %s", out)
	}
}

func TestCLI_Run_SetAndRead(t *testing.T) {
	path := testutil.TempProgram(t, "1,0,0,0,99")

	out, err := runCLI(t, "", "run", "-set", "1=4", "-set", "2=4", "-read", "4", path)
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	// mem[0] = mem[4] + mem[4] = 198; cell 4 is still 99.
	if strings.TrimSpace(out) != "99" {
		t.Errorf("expected 99, got: %s", out)
	}
}

func TestCLI_Run_InvalidSet(t *testing.T) {
	path := testutil.TempProgram(t, "99")

	for _, set := range []string{"12", "x=1", "1=y"} {
		if _, err := runCLI(t, "", "run", "-set", set, path); err == nil {
			t.Errorf("-set %s: expected error", set)
		}
	}
}

func TestCLI_Run_Fault(t *testing.T) {
	path := testutil.TempProgram(t, "1,0,0,100,99")

	out, err := runCLI(t, "", "run", path)
	if !errors.Is(err, embed.ErrFaulted) {
		t.Fatalf("expected ErrFaulted, got %v", err)
	}
	if !strings.Contains(out, "intcode: fault at pc=0") {
		t.Errorf("expected fault report, got: %s", out)
	}
	if !strings.Contains(out, "memory:") {
		t.Errorf("expected core dump, got: %s", out)
	}

	out, _ = runCLI(t, "", "run", "-no-core-dump", path)
	if strings.Contains(out, "memory:") {
		t.Errorf("unexpected core dump: %s", out)
	}
}

func TestCLI_Run_MaxSteps(t *testing.T) {
	path := testutil.TempProgram(t, "1,0,0,0,99")

	_, err := runCLI(t, "", "run", "-max-steps", "1", path)
	if !errors.Is(err, vm.ErrStepLimitExceeded) {
		t.Errorf("expected ErrStepLimitExceeded, got %v", err)
	}
}

func TestCLI_Run_Stats(t *testing.T) {
	path := testutil.TempProgram(t, "1,9,10,3,2,3,11,0,99,30,40,50")

	out, err := runCLI(t, "", "run", "-stats", path)
	if err != nil {
		t.Fatalf("run command failed: %v", err)
	}
	if !strings.Contains(out, "steps: 3") {
		t.Errorf("expected step count, got: %s", out)
	}
	if !strings.Contains(out, "MUL   1") {
		t.Errorf("expected opcode counts, got: %s", out)
	}
}

func TestCLI_Run_Usage(t *testing.T) {
	if _, err := runCLI(t, "", "run"); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestCLI_Search(t *testing.T) {
	path := testutil.TempProgram(t, testutil.GravityAssist())

	out, err := runCLI(t, "", "search", "-target", "80", "-v", path)
	if err != nil {
		t.Fatalf("search command failed: %v", err)
	}
	if !strings.Contains(out, "noun = 7, verb = 11") {
		t.Errorf("expected noun and verb, got: %s", out)
	}
	if !strings.HasSuffix(out, "711\n") {
		t.Errorf("expected answer 711, got: %s", out)
	}
}

func TestCLI_Search_NotFound(t *testing.T) {
	path := testutil.TempProgram(t, testutil.GravityAssist())

	_, err := runCLI(t, "", "search", "-target", "1", "-range", "20", "-workers", "2", path)
	if !errors.Is(err, embed.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCLI_Search_NegativeRange(t *testing.T) {
	path := testutil.TempProgram(t, testutil.GravityAssist())

	_, err := runCLI(t, "", "search", "-range", "-1", path)
	if !errors.Is(err, embed.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestCLI_AsmAndRun(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "prog.asm")
	err := os.WriteFile(src, []byte(`
        ADD  a, #3, total   ; total = 39 + 3
        MUL  total, #2, 0
        HALT
a:      DATA 39
total:  DATA 0
`), 0644)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	// Text to stdout
	out, err := runCLI(t, "", "asm", src)
	if err != nil {
		t.Fatalf("asm command failed: %v", err)
	}
	if strings.TrimSpace(out) != "1001,9,3,10,1002,10,2,0,99,39,0" {
		t.Errorf("unexpected program text: %s", out)
	}

	// Binary image, then run it
	image := filepath.Join(tmpDir, "prog.icbc")
	if _, err := runCLI(t, "", "asm", "-o", image, src); err != nil {
		t.Fatalf("asm -o failed: %v", err)
	}
	out, err = runCLI(t, "", "run", image)
	if err != nil {
		t.Fatalf("run image failed: %v", err)
	}
	if strings.TrimSpace(out) != "84" {
		t.Errorf("expected 84, got: %s", out)
	}
}

func TestCLI_Asm_Error(t *testing.T) {
	path := testutil.TempFile(t, "FROB 1, 2\n", ".asm")

	if _, err := runCLI(t, "", "asm", path); err == nil {
		t.Error("expected error for unknown mnemonic")
	}
}

func TestCLI_Disasm(t *testing.T) {
	path := testutil.TempProgram(t, "1002,4,3,4,33")

	out, err := runCLI(t, "", "disasm", path)
	if err != nil {
		t.Fatalf("disasm command failed: %v", err)
	}
	if !strings.Contains(out, "MUL   4, #3, 4") {
		t.Errorf("expected MUL line, got: %s", out)
	}
	if !strings.Contains(out, "DATA 33") {
		t.Errorf("expected DATA line, got: %s", out)
	}

	dest := filepath.Join(t.TempDir(), "out.asm")
	if _, err := runCLI(t, "", "disasm", "-o", dest, path); err != nil {
		t.Fatalf("disasm -o failed: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("expected output file: %v", err)
	}
}

func TestCLI_Snapshot_CSV(t *testing.T) {
	path := testutil.TempProgram(t, "1,9,10,3,2,3,11,0,99,30,40,50")
	dest := filepath.Join(t.TempDir(), "mem.csv")

	out, err := runCLI(t, "", "snapshot", "-o", dest, path)
	if err != nil {
		t.Fatalf("snapshot command failed: %v", err)
	}
	if !strings.Contains(out, "(12 rows)") {
		t.Errorf("expected row count, got: %s", out)
	}

	cells, err := loader.LoadImage(dest)
	if err != nil {
		t.Fatalf("reloading snapshot: %v", err)
	}
	testutil.AssertMemory(t, []int64{3500, 9, 10, 70, 2, 3, 11, 0, 99, 30, 40, 50}, cells)
}

func TestCLI_Snapshot_Trace(t *testing.T) {
	path := testutil.TempProgram(t, "1,9,10,3,2,3,11,0,99,30,40,50")
	dest := filepath.Join(t.TempDir(), "trace.json")

	if _, err := runCLI(t, "", "snapshot", "-trace", "-o", dest, path); err != nil {
		t.Fatalf("snapshot command failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading trace: %v", err)
	}
	for _, want := range []string{"ADD", "MUL", "HALT"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %s in trace, got: %s", want, data)
		}
	}
}

func TestCLI_Snapshot_Fault(t *testing.T) {
	path := testutil.TempProgram(t, "1,0,0,100,99")
	dest := filepath.Join(t.TempDir(), "mem.csv")

	_, err := runCLI(t, "", "snapshot", "-no-core-dump", "-o", dest, path)
	if !errors.Is(err, embed.ErrFaulted) {
		t.Errorf("expected ErrFaulted, got %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("expected snapshot of faulted run: %v", err)
	}
}

func TestCLI_Snapshot_Usage(t *testing.T) {
	path := testutil.TempProgram(t, "99")

	if _, err := runCLI(t, "", "snapshot", path); err == nil {
		t.Error("expected usage error without -o")
	}
}

func TestCLI_Repl(t *testing.T) {
	path := testutil.TempProgram(t, "1,9,10,3,2,3,11,0,99,30,40,50")

	out, err := runCLI(t, "step\nrun\npeek 0\nquit\n", "repl", path)
	if err != nil {
		t.Fatalf("repl command failed: %v", err)
	}
	if !strings.Contains(out, "0000: ADD") {
		t.Errorf("expected step trace, got: %s", out)
	}
	if !strings.Contains(out, "mem[0] = 3500") {
		t.Errorf("expected final value, got: %s", out)
	}
}

func TestCLI_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.txt")

	for _, cmd := range []string{"run", "search", "disasm", "repl"} {
		if _, err := runCLI(t, "", cmd, missing); err == nil {
			t.Errorf("%s: expected error for missing file", cmd)
		}
	}
}
