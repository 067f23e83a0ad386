package provider

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestCLIProvider(t *testing.T) {
	echo, err := exec.LookPath("echo")
	if err != nil {
		t.Skip("echo not on PATH")
	}

	t.Run("completes via the local binary", func(t *testing.T) {
		p, err := NewCLIProvider(echo, nil)
		if err != nil {
			t.Fatalf("NewCLIProvider failed: %v", err)
		}
		if p.Name() != "cli-"+echo {
			t.Errorf("unexpected name: %s", p.Name())
		}

		resp, err := p.Complete(context.Background(), []Message{
			{Role: "system", Content: "ignored, only the last message is sent"},
			{Role: "user", Content: "hello research"},
		}, []ToolSpec{{Name: "web_search"}})
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if !strings.Contains(resp.Content, "hello research") {
			t.Errorf("expected the prompt echoed back, got %q", resp.Content)
		}
		if len(resp.ToolCalls) != 0 {
			t.Errorf("a cli provider must not emit tool calls, got %d", len(resp.ToolCalls))
		}
	})

	t.Run("requires a binary path", func(t *testing.T) {
		if _, err := NewCLIProvider("", nil); err == nil {
			t.Error("expected an error for an empty binary path")
		}
	})

	t.Run("missing binary fails", func(t *testing.T) {
		p, _ := NewCLIProvider("/nonexistent/agent-binary", nil)
		if _, err := p.Complete(context.Background(), []Message{{Role: "user", Content: "q"}}, nil); err == nil {
			t.Error("expected an error for a missing binary")
		}
	})

	t.Run("embeddings unsupported", func(t *testing.T) {
		p, _ := NewCLIProvider(echo, nil)
		if _, err := p.Embed(context.Background(), "text"); err == nil {
			t.Error("expected embeddings to be unsupported")
		}
	})
}
