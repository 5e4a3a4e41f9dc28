package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ransched.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommandAcceptsGoodConfig(t *testing.T) {
	path := writeConfig(t, "numerology: 1\ncells:\n  - {index: 0, pci: 1, numerology: 1}\n")
	out, err := execute(t, "validate", "--config", path)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 cells") || !strings.Contains(out, "500µs") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestValidateCommandReportsAllProblems(t *testing.T) {
	path := writeConfig(t, "max_ues: 0\ncells:\n  - {index: 0, pci: 1}\n  - {index: 0, pci: 1}\n")
	out, err := execute(t, "validate", "--config", path)
	if err == nil {
		t.Fatalf("validate accepted a bad config")
	}
	for _, want := range []string{"max_ues", "duplicate index", "duplicate pci"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q (output %q)", err, want, out)
		}
	}
}

func TestRunCommandAcceleratedForDuration(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"cells:",
		"  - {index: 0, pci: 1}",
		"ingress: {addr: \"127.0.0.1:0\"}",
		"metrics: {addr: \"\"}",
		"logging: {level: error}",
	}, "\n"))
	if out, err := execute(t, "run", "--config", path, "--accelerated", "--duration", "20ms"); err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
}
