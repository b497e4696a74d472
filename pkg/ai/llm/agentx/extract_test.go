package agentx_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/agentx"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/toolmeta"
)

// --- ExtractToolStarts tests ---

func TestExtractToolStarts_Basic(t *testing.T) {
	blocks := []llm.ContentBlock{
		llm.TextBlock{Text: "Let me read that file."},
		llm.ToolUseBlock{ID: "toolu_1", Name: "Read", Input: map[string]any{"file_path": "/a"}},
	}
	index := agentx.NewToolIndex()
	emitted := make(agentx.EmittedSet)

	events := agentx.ExtractToolStarts(context.Background(), blocks,
		agentx.StartOptions{TurnID: "turn-1"}, index, emitted)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	start, ok := events[0].(agentx.ToolStartEvent)
	if !ok {
		t.Fatalf("expected ToolStartEvent, got %T", events[0])
	}
	if start.ToolUseID != "toolu_1" || start.ToolName != "Read" || start.TurnID != "turn-1" {
		t.Fatalf("unexpected event: %+v", start)
	}
	if !index.Has("toolu_1") {
		t.Fatal("tool not registered in index")
	}
}

func TestExtractToolStarts_DedupByID(t *testing.T) {
	blocks := []llm.ContentBlock{
		llm.ToolUseBlock{ID: "toolu_1", Name: "Read", Input: map[string]any{"file_path": "/a"}},
	}
	index := agentx.NewToolIndex()
	emitted := make(agentx.EmittedSet)
	ctx := context.Background()

	first := agentx.ExtractToolStarts(ctx, blocks, agentx.StartOptions{}, index, emitted)
	second := agentx.ExtractToolStarts(ctx, blocks, agentx.StartOptions{}, index, emitted)

	if len(first) != 1 || len(second) != 0 {
		t.Fatalf("expected 1 then 0 events, got %d then %d", len(first), len(second))
	}
}

func TestExtractToolStarts_ReemitOnInputArrival(t *testing.T) {
	index := agentx.NewToolIndex()
	emitted := make(agentx.EmittedSet)
	ctx := context.Background()

	placeholder := []llm.ContentBlock{llm.ToolUseBlock{ID: "toolu_1", Name: "Read"}}
	complete := []llm.ContentBlock{
		llm.ToolUseBlock{ID: "toolu_1", Name: "Read", Input: map[string]any{"file_path": "/a"}},
	}

	first := agentx.ExtractToolStarts(ctx, placeholder, agentx.StartOptions{}, index, emitted)
	second := agentx.ExtractToolStarts(ctx, complete, agentx.StartOptions{}, index, emitted)
	third := agentx.ExtractToolStarts(ctx, complete, agentx.StartOptions{}, index, emitted)

	if len(first) != 1 || len(second) != 1 || len(third) != 0 {
		t.Fatalf("expected 1/1/0 events, got %d/%d/%d", len(first), len(second), len(third))
	}
	if second[0].(agentx.ToolStartEvent).Input["file_path"] != "/a" {
		t.Fatalf("re-emission lacks complete input: %+v", second[0])
	}
}

func TestExtractToolStarts_StripsMetadataFromInput(t *testing.T) {
	blocks := []llm.ContentBlock{
		llm.ToolUseBlock{ID: "toolu_1", Name: "Read", Input: map[string]any{
			"_intent":      "inspect config",
			"_displayName": "Reading file",
			"file_path":    "/a",
		}},
	}

	events := agentx.ExtractToolStarts(context.Background(), blocks,
		agentx.StartOptions{}, agentx.NewToolIndex(), make(agentx.EmittedSet))

	start := events[0].(agentx.ToolStartEvent)
	if _, ok := start.Input["_intent"]; ok {
		t.Fatalf("metadata key leaked into event input: %+v", start.Input)
	}
	if start.Input["file_path"] != "/a" {
		t.Fatalf("payload key lost: %+v", start.Input)
	}
	if start.Intent != "inspect config" || start.DisplayName != "Reading file" {
		t.Fatalf("metadata not lifted onto event: %+v", start)
	}
}

func TestExtractToolStarts_MetadataFromStore(t *testing.T) {
	ctx := context.Background()
	store := toolmeta.NewMemoryStore()
	store.Put(ctx, "toolu_1", toolmeta.Metadata{Intent: "stored intent", DisplayName: "Stored name"})

	blocks := []llm.ContentBlock{
		llm.ToolUseBlock{ID: "toolu_1", Name: "Read", Input: map[string]any{"file_path": "/a"}},
	}
	events := agentx.ExtractToolStarts(ctx, blocks,
		agentx.StartOptions{Metadata: store}, agentx.NewToolIndex(), make(agentx.EmittedSet))

	start := events[0].(agentx.ToolStartEvent)
	if start.Intent != "stored intent" || start.DisplayName != "Stored name" {
		t.Fatalf("store metadata not resolved: %+v", start)
	}
}

func TestExtractToolStarts_BashDescriptionFallback(t *testing.T) {
	blocks := []llm.ContentBlock{
		llm.ToolUseBlock{ID: "toolu_1", Name: "Bash", Input: map[string]any{
			"command":     "ls -la",
			"description": "List directory contents",
		}},
	}

	events := agentx.ExtractToolStarts(context.Background(), blocks,
		agentx.StartOptions{}, agentx.NewToolIndex(), make(agentx.EmittedSet))

	if events[0].(agentx.ToolStartEvent).Intent != "List directory contents" {
		t.Fatalf("bash description not used as intent: %+v", events[0])
	}
}

func TestExtractToolStarts_DeclaredParent(t *testing.T) {
	blocks := []llm.ContentBlock{
		llm.ToolUseBlock{ID: "toolu_child", Name: "Read", Input: map[string]any{"file_path": "/a"}},
	}

	events := agentx.ExtractToolStarts(context.Background(), blocks,
		agentx.StartOptions{ParentToolUseID: "toolu_task"}, agentx.NewToolIndex(), make(agentx.EmittedSet))

	if events[0].(agentx.ToolStartEvent).ParentToolUseID != "toolu_task" {
		t.Fatalf("declared parent not applied: %+v", events[0])
	}
}

func TestExtractToolStarts_SelfParentSuppressed(t *testing.T) {
	blocks := []llm.ContentBlock{
		llm.ToolUseBlock{ID: "toolu_1", Name: "Task", Input: map[string]any{"prompt": "go"}},
	}

	events := agentx.ExtractToolStarts(context.Background(), blocks,
		agentx.StartOptions{ParentToolUseID: "toolu_1"}, agentx.NewToolIndex(), make(agentx.EmittedSet))

	if events[0].(agentx.ToolStartEvent).ParentToolUseID != "" {
		t.Fatalf("self-reference must resolve to no parent: %+v", events[0])
	}
}

func TestExtractToolStarts_FallbackParent(t *testing.T) {
	block := llm.ToolUseBlock{ID: "toolu_child", Name: "Read", Input: map[string]any{"file_path": "/a"}}

	cases := []struct {
		name   string
		active map[string]struct{}
		parent string
	}{
		{"single active task", map[string]struct{}{"toolu_task": {}}, "toolu_task"},
		{"no active tasks", map[string]struct{}{}, ""},
		{"ambiguous", map[string]struct{}{"toolu_t1": {}, "toolu_t2": {}}, ""},
		{"only self active", map[string]struct{}{"toolu_child": {}}, ""},
	}

	for _, tc := range cases {
		events := agentx.ExtractToolStarts(context.Background(),
			[]llm.ContentBlock{block},
			agentx.StartOptions{ActiveParents: tc.active},
			agentx.NewToolIndex(), make(agentx.EmittedSet))

		if got := events[0].(agentx.ToolStartEvent).ParentToolUseID; got != tc.parent {
			t.Fatalf("%s: expected parent %q, got %q", tc.name, tc.parent, got)
		}
	}
}

// --- ExtractToolResults tests ---

func TestExtractToolResults_MatchByID(t *testing.T) {
	index := agentx.NewToolIndex()
	index.Register("toolu_1", "Read", map[string]any{"file_path": "/a"})
	index.Register("toolu_2", "Bash", map[string]any{"command": "ls"})

	// Results arrive in the opposite order from the invocations.
	blocks := []llm.ContentBlock{
		llm.ToolResultBlock{ToolUseID: "toolu_2", Content: "file1\nfile2"},
		llm.ToolResultBlock{ToolUseID: "toolu_1", Content: "contents"},
	}

	events := agentx.ExtractToolResults(context.Background(), blocks,
		agentx.ResultOptions{TurnID: "turn-1"}, index)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	first := events[0].(agentx.ToolResultEvent)
	second := events[1].(agentx.ToolResultEvent)
	if first.ToolUseID != "toolu_2" || first.ToolName != "Bash" {
		t.Fatalf("result matched to wrong invocation: %+v", first)
	}
	if second.ToolUseID != "toolu_1" || second.ToolName != "Read" || second.Result != "contents" {
		t.Fatalf("result matched to wrong invocation: %+v", second)
	}
}

func TestExtractToolResults_UnknownIDTolerated(t *testing.T) {
	blocks := []llm.ContentBlock{
		llm.ToolResultBlock{ToolUseID: "toolu_ghost", Content: "done"},
	}

	events := agentx.ExtractToolResults(context.Background(), blocks,
		agentx.ResultOptions{}, agentx.NewToolIndex())

	result := events[0].(agentx.ToolResultEvent)
	if result.ToolUseID != "toolu_ghost" || result.ToolName != "" {
		t.Fatalf("unexpected event for unmatched result: %+v", result)
	}
}

func TestExtractToolResults_ErrorDetection(t *testing.T) {
	index := agentx.NewToolIndex()
	index.Register("toolu_1", "Bash", nil)

	cases := []struct {
		content any
		isError bool
		want    bool
	}{
		{"all good", false, false},
		{"Error: command not found", false, true},
		{"error: permission denied", false, true},
		{"  Error: leading whitespace", false, true},
		{"The Error: mid-string", false, false},
		{"fine output", true, true},
	}

	for i, tc := range cases {
		blocks := []llm.ContentBlock{
			llm.ToolResultBlock{ToolUseID: "toolu_1", Content: tc.content, IsError: tc.isError},
		}
		events := agentx.ExtractToolResults(context.Background(), blocks,
			agentx.ResultOptions{}, index)
		if got := events[0].(agentx.ToolResultEvent).IsError; got != tc.want {
			t.Fatalf("case %d: expected isError=%v, got %v", i, tc.want, got)
		}
	}
}

func TestExtractToolResults_SelfParentSuppressed(t *testing.T) {
	blocks := []llm.ContentBlock{
		llm.ToolResultBlock{ToolUseID: "toolu_1", Content: "done"},
	}

	events := agentx.ExtractToolResults(context.Background(), blocks,
		agentx.ResultOptions{ParentToolUseID: "toolu_1"}, agentx.NewToolIndex())

	if events[0].(agentx.ToolResultEvent).ParentToolUseID != "" {
		t.Fatalf("result must not parent itself: %+v", events[0])
	}
}

func TestExtractToolResults_FallbackSynthesis(t *testing.T) {
	ctx := context.Background()
	index := agentx.NewToolIndex()

	// Explicit id wins.
	events := agentx.ExtractToolResults(ctx, nil, agentx.ResultOptions{
		Fallback: &agentx.FallbackResult{Result: "done", ToolUseID: "toolu_1"},
	}, index)
	if len(events) != 1 || events[0].(agentx.ToolResultEvent).ToolUseID != "toolu_1" {
		t.Fatalf("explicit fallback id not used: %+v", events)
	}

	// No id: derive from the turn.
	events = agentx.ExtractToolResults(ctx, nil, agentx.ResultOptions{
		TurnID:   "turn-9",
		Fallback: &agentx.FallbackResult{Result: "done"},
	}, index)
	if events[0].(agentx.ToolResultEvent).ToolUseID != "fallback-turn-9" {
		t.Fatalf("turn-derived fallback id wrong: %+v", events[0])
	}

	// No id, no turn: sentinel.
	events = agentx.ExtractToolResults(ctx, nil, agentx.ResultOptions{
		Fallback: &agentx.FallbackResult{Result: "done"},
	}, index)
	if events[0].(agentx.ToolResultEvent).ToolUseID != "fallback-result" {
		t.Fatalf("sentinel fallback id wrong: %+v", events[0])
	}
}

func TestExtractToolResults_FallbackSkippedWhenBlocksPresent(t *testing.T) {
	blocks := []llm.ContentBlock{
		llm.ToolResultBlock{ToolUseID: "toolu_1", Content: "real result"},
	}

	events := agentx.ExtractToolResults(context.Background(), blocks, agentx.ResultOptions{
		Fallback: &agentx.FallbackResult{Result: "should be ignored"},
	}, agentx.NewToolIndex())

	if len(events) != 1 || events[0].(agentx.ToolResultEvent).Result != "real result" {
		t.Fatalf("fallback must yield to real blocks: %+v", events)
	}
}

func TestExtractToolResults_NoBlocksNoFallback(t *testing.T) {
	events := agentx.ExtractToolResults(context.Background(), nil,
		agentx.ResultOptions{}, agentx.NewToolIndex())
	if events != nil {
		t.Fatalf("expected no events, got %+v", events)
	}
}

// --- background lifecycle tests ---

func TestExtractToolResults_TaskBackgrounded(t *testing.T) {
	ctx := context.Background()
	store := toolmeta.NewMemoryStore()
	store.Put(ctx, "toolu_task", toolmeta.Metadata{Intent: "research the API"})

	index := agentx.NewToolIndex()
	index.Register("toolu_task", "Task", map[string]any{"prompt": "research"})

	blocks := []llm.ContentBlock{
		llm.ToolResultBlock{ToolUseID: "toolu_task", Content: "Task launched with agentId: abc123 and will continue in the background"},
	}
	events := agentx.ExtractToolResults(ctx, blocks,
		agentx.ResultOptions{Metadata: store}, index)

	if len(events) != 2 {
		t.Fatalf("expected tool_result plus task_backgrounded, got %d events", len(events))
	}
	bg, ok := events[1].(agentx.TaskBackgroundedEvent)
	if !ok {
		t.Fatalf("expected TaskBackgroundedEvent, got %T", events[1])
	}
	if bg.TaskID != "abc123" || bg.ToolUseID != "toolu_task" || bg.Intent != "research the API" {
		t.Fatalf("unexpected event: %+v", bg)
	}
}

func TestExtractToolResults_AgentIDIgnoredForNonTask(t *testing.T) {
	index := agentx.NewToolIndex()
	index.Register("toolu_1", "Bash", nil)

	blocks := []llm.ContentBlock{
		llm.ToolResultBlock{ToolUseID: "toolu_1", Content: "output mentions agentId: abc123"},
	}
	events := agentx.ExtractToolResults(context.Background(), blocks,
		agentx.ResultOptions{}, index)

	if len(events) != 1 {
		t.Fatalf("agentId marker outside Task must not background: %+v", events)
	}
}

func TestExtractToolResults_ShellBackgrounded(t *testing.T) {
	index := agentx.NewToolIndex()
	index.Register("toolu_1", "Bash", map[string]any{"command": "npm run dev"})

	blocks := []llm.ContentBlock{
		llm.ToolResultBlock{ToolUseID: "toolu_1", Content: "Command running in background with shell_id: shell_42"},
	}
	events := agentx.ExtractToolResults(context.Background(), blocks,
		agentx.ResultOptions{}, index)

	if len(events) != 2 {
		t.Fatalf("expected tool_result plus shell_backgrounded, got %d events", len(events))
	}
	bg := events[1].(agentx.ShellBackgroundedEvent)
	if bg.ShellID != "shell_42" || bg.Command != "npm run dev" {
		t.Fatalf("unexpected event: %+v", bg)
	}
}

func TestExtractToolResults_ShellKilled(t *testing.T) {
	index := agentx.NewToolIndex()
	index.Register("toolu_1", "KillShell", map[string]any{"shell_id": "shell_42"})

	blocks := []llm.ContentBlock{
		llm.ToolResultBlock{ToolUseID: "toolu_1", Content: "Shell terminated"},
	}
	events := agentx.ExtractToolResults(context.Background(), blocks,
		agentx.ResultOptions{}, index)

	if len(events) != 2 {
		t.Fatalf("expected tool_result plus shell_killed, got %d events", len(events))
	}
	if events[1].(agentx.ShellKilledEvent).ShellID != "shell_42" {
		t.Fatalf("unexpected event: %+v", events[1])
	}
}

// --- SerializeResult tests ---

func TestSerializeResult(t *testing.T) {
	if got := agentx.SerializeResult(nil); got != "" {
		t.Fatalf("nil should serialize empty, got %q", got)
	}
	if got := agentx.SerializeResult("plain"); got != "plain" {
		t.Fatalf("string should pass through, got %q", got)
	}
	got := agentx.SerializeResult(map[string]any{"status": "ok"})
	want := "{\n  \"status\": \"ok\"\n}"
	if got != want {
		t.Fatalf("structured result:\n got: %q\nwant: %q", got, want)
	}
}
