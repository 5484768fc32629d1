package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	if root.Use != "ecmacore" {
		t.Errorf("expected Use=ecmacore, got %q", root.Use)
	}

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[strings.Fields(c.Use)[0]] = true
	}
	for _, want := range []string{"eval", "run", "inspect"} {
		if !names[want] {
			t.Errorf("expected %q subcommand to be registered", want)
		}
	}
}

func TestEvalCommandPrintsResult(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"eval", "1 + 2"})

	if err := root.Execute(); err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "3" {
		t.Errorf("expected \"3\", got %q", got)
	}
}

func TestEvalCommandRequiresExactlyOneArg(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"eval"})
	root.SilenceErrors = true
	root.SilenceUsage = true

	if err := root.Execute(); err == nil {
		t.Fatal("expected an error when no source argument is given")
	}
}

func TestInspectCommandRejectsPartialDiffFlags(t *testing.T) {
	root := newRootCmd()
	dsn := t.TempDir() + "/ecmacore-test.db"
	root.SetArgs([]string{"inspect", "some-session", "--diff-from", "a"})
	root.SilenceErrors = true
	root.SilenceUsage = true

	t.Setenv("ECMACORE_DATABASE_DSN", dsn)
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error when only --diff-from is set")
	}
}
