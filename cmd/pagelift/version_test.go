package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestGetVersion tests version string resolution.
func TestGetVersion(t *testing.T) {
	if got := getVersion(); got == "" {
		t.Error("getVersion() should never be empty")
	}

	t.Run("ldflags value wins", func(t *testing.T) {
		orig := version
		defer func() { version = orig }()

		version = "v1.2.3"
		if got := getVersion(); got != "v1.2.3" {
			t.Errorf("getVersion() = %q, want v1.2.3", got)
		}
	})
}

// TestGetCommit tests commit hash resolution.
func TestGetCommit(t *testing.T) {
	if got := getCommit(); got == "" {
		t.Error("getCommit() should never be empty")
	}

	t.Run("ldflags value wins", func(t *testing.T) {
		orig := commit
		defer func() { commit = orig }()

		commit = "abc1234"
		if got := getCommit(); got != "abc1234" {
			t.Errorf("getCommit() = %q, want abc1234", got)
		}
	})
}

// TestGetDate tests build date resolution.
func TestGetDate(t *testing.T) {
	if got := getDate(); got == "" {
		t.Error("getDate() should never be empty")
	}
}

// TestNewVersionCmd tests the version command output.
func TestNewVersionCmd(t *testing.T) {
	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	cmd.Run(cmd, nil)

	output := out.String()
	if !strings.Contains(output, "pagelift version") {
		t.Errorf("output should contain 'pagelift version', got: %s", output)
	}
	if !strings.Contains(output, "commit:") {
		t.Errorf("output should contain the commit line, got: %s", output)
	}
	if !strings.Contains(output, "built:") {
		t.Errorf("output should contain the build date line, got: %s", output)
	}
}
