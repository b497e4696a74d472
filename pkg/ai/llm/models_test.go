package llm_test

import (
	"encoding/json"
	"testing"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm"
)

func TestMessage_UnmarshalBlockArray(t *testing.T) {
	raw := `{"role":"assistant","content":[
		{"type":"text","text":"Let me check."},
		{"type":"tool_use","id":"toolu_1","name":"Read","input":{"file_path":"/a"}},
		{"type":"thinking","thinking":"hmm","signature":"sig"}
	]}`

	var msg llm.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if msg.Role != llm.RoleAssistant || len(msg.Blocks) != 3 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Text() != "Let me check." {
		t.Fatalf("unexpected text: %q", msg.Text())
	}
	uses := msg.ToolUses()
	if len(uses) != 1 || uses[0].ID != "toolu_1" || uses[0].Input["file_path"] != "/a" {
		t.Fatalf("unexpected tool uses: %+v", uses)
	}
}

func TestMessage_UnmarshalStringContent(t *testing.T) {
	var msg llm.Message
	if err := json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(msg.Blocks) != 1 || msg.Text() != "hello" {
		t.Fatalf("string content not lifted to a text block: %+v", msg)
	}
}

func TestMessage_UnknownBlockRoundTrip(t *testing.T) {
	raw := `{"role":"assistant","content":[{"type":"server_tool_use","id":"x","widget":{"a":1}}]}`

	var msg llm.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	unknown, ok := msg.Blocks[0].(llm.UnknownBlock)
	if !ok {
		t.Fatalf("expected UnknownBlock, got %T", msg.Blocks[0])
	}
	if unknown.Kind != "server_tool_use" {
		t.Fatalf("unexpected kind: %q", unknown.Kind)
	}

	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	// The unknown block's raw bytes survive untouched.
	var decoded struct {
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("re-decode failed: %v", err)
	}
	if string(decoded.Content[0]) != `{"type":"server_tool_use","id":"x","widget":{"a":1}}` {
		t.Fatalf("unknown block not preserved: %s", decoded.Content[0])
	}
}

func TestMessage_ToolResultDecode(t *testing.T) {
	raw := `{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"done","is_error":true}]}`

	var msg llm.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	results := msg.ToolResults()
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ToolUseID != "toolu_1" || results[0].Content != "done" || !results[0].IsError {
		t.Fatalf("unexpected result block: %+v", results[0])
	}
}

func TestToolUseBlock_InputEmpty(t *testing.T) {
	if !(llm.ToolUseBlock{ID: "x", Name: "Read"}).InputEmpty() {
		t.Fatal("nil input should be empty")
	}
	if (llm.ToolUseBlock{Input: map[string]any{"k": 1}}).InputEmpty() {
		t.Fatal("populated input should not be empty")
	}
}

func TestEncodeBlock_NilInputBecomesObject(t *testing.T) {
	out, err := llm.EncodeBlock(llm.ToolUseBlock{ID: "toolu_1", Name: "Read"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(out) != `{"type":"tool_use","id":"toolu_1","name":"Read","input":{}}` {
		t.Fatalf("nil input must serialize as {}: %s", out)
	}
}
