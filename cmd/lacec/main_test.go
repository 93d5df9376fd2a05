package main

import (
	"bytes"
	"os"
	"testing"
)

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestDebugFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	for _, name := range []string{"dparse", "dmir", "dmachir", "dasm", "output"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s to exist", name)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	in := []string{"-dparse", "--dmir", "-dmachir", "file.lc", "-o", "out.s"}
	want := []string{"--dparse", "--dmir", "--dmachir", "file.lc", "-o", "out.s"}
	got := normalizeFlags(in)
	if len(got) != len(want) {
		t.Fatalf("normalizeFlags(%v) = %v, want %v", in, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("normalizeFlags[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOutputPathDefault(t *testing.T) {
	resetDebugFlags()
	if got := outputPath(); got != "main.s" {
		t.Errorf("outputPath() = %q, want %q", got, "main.s")
	}
}

func TestOutputPathGivenNoExtension(t *testing.T) {
	resetDebugFlags()
	output = "build/out"
	if got := outputPath(); got != "build/out.s" {
		t.Errorf("outputPath() = %q, want %q", got, "build/out.s")
	}
}

func TestOutputPathGivenWithExtension(t *testing.T) {
	resetDebugFlags()
	output = "build/out.asm"
	if got := outputPath(); got != "build/out.asm" {
		t.Errorf("outputPath() = %q, want %q", got, "build/out.asm")
	}
}

func TestNoDebugFlagsCompilesWithoutError(t *testing.T) {
	resetDebugFlags()
	dir := t.TempDir()
	src := dir + "/test.lc"
	if err := os.WriteFile(src, []byte("main :: () -> s64 { ret 0; }\n"), 0644); err != nil {
		t.Fatal(err)
	}
	outPath := dir + "/test.s"

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"-o", outPath, src})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v (stderr: %s)", err, errOut.String())
	}
}
