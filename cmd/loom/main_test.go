package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		fixture string
		args    []string
		want    string
	}{
		{
			name:    "list",
			fixture: "tree: {tag: ul, children: [{tag: li, text: a}, {tag: li, text: b}]}",
			want:    "<ul><li>a</li><li>b</li></ul>\n",
		},
		{
			name: "element defaults",
			fixture: `
defaults:
  x-button: {type: button}
tree: {tag: x-button, text: go}`,
			want: `<x-button type="button">go</x-button>` + "\n",
		},
		{
			name:    "immediate mode",
			fixture: "tree: [a, {tag: b, text: c}]",
			args:    []string{"--immediate"},
			want:    "a<b>c</b>\n",
		},
		{
			name:    "pretty",
			fixture: "tree: {tag: ul, children: [{tag: li, text: one}]}",
			args:    []string{"--pretty"},
			want:    "<ul>\n  <li>one</li>\n</ul>\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFixture(t, dir, strings.ReplaceAll(tt.name, " ", "-")+".yaml", tt.fixture)
			args := append([]string{"render", "--dir", dir}, tt.args...)
			out, err := run(t, append(args, path)...)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestRenderCommandErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFixture(t, dir, "bad.yaml", "tree: {props: {}}")

	if _, err := run(t, "render", "--dir", dir, bad); err == nil {
		t.Error("fixture without a tag should fail")
	}
	if _, err := run(t, "render", "--dir", dir, filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing fixture should fail")
	}
	good := writeFixture(t, dir, "good.yaml", "tree: a")
	if _, err := run(t, "render", "--dir", dir, "--log-level", "loud", good); err == nil {
		t.Error("invalid log level should fail")
	}
}

func TestDiffCommand(t *testing.T) {
	dir := t.TempDir()
	before := writeFixture(t, dir, "before.yaml", "tree: {tag: ul, children: [{tag: li, text: a}]}")
	after := writeFixture(t, dir, "after.yaml", "tree: {tag: ul, children: [{tag: li, text: z}, {tag: li, text: b}]}")

	out, err := run(t, "diff", "--dir", dir, "--html", before, after)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"TEXT", "CREATE", "2 patches: 1 created, 0 removed, 0 replaced, 1 text, 0 updated", "<ul><li>z</li><li>b</li></ul>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "diff", "--dir", dir, before, before)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "no changes" {
		t.Errorf("identical fixtures: %q", out)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "loom.yaml", "deferTimeout: -1s\n")
	path := writeFixture(t, dir, "tree.yaml", "tree: a")

	if _, err := run(t, "render", "--dir", dir, path); err == nil {
		t.Error("negative timeout in loom.yaml should fail validation")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil || out != "dev\n" {
		t.Errorf("version = %q, %v", out, err)
	}
}

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "tree.yaml", "tree: a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, slog.New(slog.NewTextHandler(io.Discard, nil)), func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Keep writing until the watcher has been registered and reports.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(4 * watchDebounce)
	defer ticker.Stop()
	for waiting := true; waiting; {
		select {
		case <-changed:
			waiting = false
		case <-ticker.C:
			os.WriteFile(path, []byte("tree: b"), 0o644)
		case <-deadline:
			t.Fatal("no change reported")
		}
	}

	writeFixture(t, dir, "other.yaml", "tree: c")
	cancel()
	if err := <-done; err != nil {
		t.Errorf("watchFile: %v", err)
	}
}
