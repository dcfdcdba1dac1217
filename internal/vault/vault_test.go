package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	root := t.TempDir()

	if _, err := Open(root); !errors.Is(err, ErrNotAVault) {
		t.Fatalf("Open(empty) error = %v, want ErrNotAVault", err)
	}

	// Only one sentinel is not enough.
	if err := os.MkdirAll(filepath.Join(root, "ai", "agents"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "ai", "AGENTS.md"), []byte("# agents\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(root); !errors.Is(err, ErrNotAVault) {
		t.Fatalf("Open(partial) error = %v, want ErrNotAVault", err)
	}

	if err := os.WriteFile(filepath.Join(root, "ai", "agents", "_base.prompt.md"), []byte("base\n"), 0644); err != nil {
		t.Fatal(err)
	}
	v, err := Open(root)
	if err != nil {
		t.Fatalf("Open(vault) unexpected error: %v", err)
	}
	if v.Root != root {
		t.Errorf("Root = %q, want %q", v.Root, root)
	}
}

func TestPaths(t *testing.T) {
	v := New("/vault")
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"backlog", v.BacklogPath("x"), filepath.FromSlash("/vault/ai/backlog/x.md")},
		{"research", v.OutputPath(KindResearch, "x"), filepath.FromSlash("/vault/ai/research/x-research.md")},
		{"plan", v.OutputPath(KindImplPlan, "x"), filepath.FromSlash("/vault/ai/plans/x-plan.md")},
		{"agent prompt", v.AgentPromptPath(KindImplPlan), filepath.FromSlash("/vault/ai/agents/impl-plan.prompt.md")},
		{"backlog rel", BacklogRel("x"), "ai/backlog/x.md"},
		{"research rel", OutputRel(KindResearch, "x"), "ai/research/x-research.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	root := t.TempDir()

	written, err := Init(root, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if len(written) == 0 {
		t.Fatal("expected template files to be written")
	}
	if _, err := Open(root); err != nil {
		t.Fatalf("initialized root is not a vault: %v", err)
	}
	for _, k := range []Kind{KindResearch, KindImplPlan} {
		if _, err := os.Stat(New(root).AgentPromptPath(k)); err != nil {
			t.Errorf("missing %s prompt: %v", k, err)
		}
	}

	t.Run("refuses existing ai dir", func(t *testing.T) {
		if _, err := Init(root, false); !errors.Is(err, ErrAlreadyInitialized) {
			t.Errorf("second Init error = %v, want ErrAlreadyInitialized", err)
		}
	})

	t.Run("force keeps edited files", func(t *testing.T) {
		agents := New(root).AgentsFile()
		if err := os.WriteFile(agents, []byte("custom\n"), 0644); err != nil {
			t.Fatal(err)
		}
		missing := New(root).AgentPromptPath(KindResearch)
		if err := os.Remove(missing); err != nil {
			t.Fatal(err)
		}

		written, err := Init(root, true)
		if err != nil {
			t.Fatalf("Init(force): %v", err)
		}
		if len(written) != 1 || written[0] != "ai/agents/research.prompt.md" {
			t.Errorf("written = %v, want only the missing research prompt", written)
		}
		data, _ := os.ReadFile(agents)
		if string(data) != "custom\n" {
			t.Errorf("AGENTS.md was overwritten: %q", data)
		}
	})
}
