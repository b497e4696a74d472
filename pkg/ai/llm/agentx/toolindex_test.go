package agentx_test

import (
	"testing"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm/agentx"
)

func TestToolIndex_Register(t *testing.T) {
	idx := agentx.NewToolIndex()

	idx.Register("toolu_1", "Read", map[string]any{"file_path": "/a"})

	name, ok := idx.Name("toolu_1")
	if !ok || name != "Read" {
		t.Fatalf("unexpected name: %q ok=%v", name, ok)
	}
	if idx.Input("toolu_1")["file_path"] != "/a" {
		t.Fatalf("unexpected input: %+v", idx.Input("toolu_1"))
	}
	if !idx.Has("toolu_1") || idx.Has("toolu_2") {
		t.Fatal("Has reports wrong membership")
	}
	if idx.Size() != 1 {
		t.Fatalf("expected size 1, got %d", idx.Size())
	}
}

func TestToolIndex_EmptyInputUpgrades(t *testing.T) {
	idx := agentx.NewToolIndex()

	// Placeholder registration from the streaming pass, then the complete
	// one from the final message.
	idx.Register("toolu_1", "Read", nil)
	idx.Register("toolu_1", "Read", map[string]any{"file_path": "/a"})

	if idx.Input("toolu_1")["file_path"] != "/a" {
		t.Fatalf("empty input not upgraded: %+v", idx.Input("toolu_1"))
	}
}

func TestToolIndex_NonEmptyInputNeverDowngrades(t *testing.T) {
	idx := agentx.NewToolIndex()

	idx.Register("toolu_1", "Read", map[string]any{"file_path": "/a"})
	idx.Register("toolu_1", "Read", nil)
	idx.Register("toolu_1", "Read", map[string]any{"file_path": "/b"})

	if idx.Input("toolu_1")["file_path"] != "/a" {
		t.Fatalf("non-empty input overwritten: %+v", idx.Input("toolu_1"))
	}
}

func TestToolIndex_NameFixedByFirstRegistration(t *testing.T) {
	idx := agentx.NewToolIndex()

	idx.Register("toolu_1", "Read", nil)
	idx.Register("toolu_1", "Write", map[string]any{"x": 1})

	if name, _ := idx.Name("toolu_1"); name != "Read" {
		t.Fatalf("name changed after first registration: %q", name)
	}
}

func TestToolIndex_OrderIndependent(t *testing.T) {
	full := map[string]any{"file_path": "/a"}

	// Any interleaving of placeholder and complete registrations converges
	// to the same state.
	orders := [][]map[string]any{
		{nil, full},
		{full, nil},
		{nil, nil, full},
		{full, full},
	}
	for i, order := range orders {
		idx := agentx.NewToolIndex()
		for _, input := range order {
			idx.Register("toolu_1", "Read", input)
		}
		if idx.Input("toolu_1")["file_path"] != "/a" {
			t.Fatalf("order %d diverged: %+v", i, idx.Input("toolu_1"))
		}
		if idx.Size() != 1 {
			t.Fatalf("order %d size %d", i, idx.Size())
		}
	}
}

func TestToolIndex_UnknownID(t *testing.T) {
	idx := agentx.NewToolIndex()

	if _, ok := idx.Name("toolu_missing"); ok {
		t.Fatal("unknown id reported as present")
	}
	if idx.Input("toolu_missing") != nil {
		t.Fatal("unknown id should have nil input")
	}
}
