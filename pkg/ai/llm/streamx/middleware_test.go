package streamx_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm/streamx"
	"github.com/Abraxas-365/agentwire/pkg/ai/llm/toolmeta"
	"github.com/anthropics/anthropic-sdk-go/option"
)

func TestReader_TransformsAndFlushesOnEOF(t *testing.T) {
	// No trailing terminator: the last frame only surfaces via flush.
	truncated := "event: content_block_start\n" +
		"data: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"tool_use\",\"id\":\"toolu_1\",\"name\":\"Read\"}}\n\n" +
		"event: content_block_delta\n" +
		"data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{\\\"_intent\\\":\\\"x\\\",\\\"file_path\\\":\\\"/a\\\"}\"}}\n\n"

	store := toolmeta.NewMemoryStore()
	tr := streamx.NewTransform(context.Background(), store)
	r := streamx.NewReader(io.NopCloser(strings.NewReader(truncated)), tr)

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"partial_json":"{\"file_path\":\"/a\"}"`) {
		t.Fatalf("flushed input missing from reader output:\n%s", s)
	}
	if strings.Contains(s, "_intent") {
		t.Fatalf("metadata leaked through reader:\n%s", s)
	}
	if meta, _ := store.Get(context.Background(), "toolu_1"); meta == nil || meta.Intent != "x" {
		t.Fatalf("metadata not stored: %+v", meta)
	}
}

func TestMiddleware_RewritesOutgoingRequest(t *testing.T) {
	store := toolmeta.NewMemoryStore()
	store.Put(context.Background(), "toolu_1", toolmeta.Metadata{Intent: "list files"})
	mw := streamx.Middleware(toolmeta.Config{RichToolDescriptions: true}, store)

	body := `{"model":"claude-sonnet-4-20250514","messages":[{"role":"assistant","content":[{"type":"tool_use","id":"toolu_1","name":"Bash","input":{"command":"ls"}}]}],"tools":[{"name":"Bash","input_schema":{"type":"object","properties":{"command":{"type":"string"}},"required":["command"]}}]}`
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		"https://api.anthropic.com/v1/messages", strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	var seen string
	next := option.MiddlewareNext(func(r *http.Request) (*http.Response, error) {
		data, readErr := io.ReadAll(r.Body)
		if readErr != nil {
			t.Fatalf("read rewritten body: %v", readErr)
		}
		seen = string(data)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader("{}")),
		}, nil
	})

	resp, err := mw(req, next)
	if err != nil {
		t.Fatalf("middleware failed: %v", err)
	}
	defer resp.Body.Close()

	if !strings.Contains(seen, `"required":["_displayName","_intent","command"]`) {
		t.Fatalf("tool schema not augmented:\n%s", seen)
	}
	if !strings.Contains(seen, `"input":{"_intent":"list files","command":"ls"}`) {
		t.Fatalf("metadata not reinjected:\n%s", seen)
	}
	if req.ContentLength != int64(len(seen)) {
		t.Fatalf("content length %d does not match body %d", req.ContentLength, len(seen))
	}
}

func TestMiddleware_WrapsStreamingResponse(t *testing.T) {
	store := toolmeta.NewMemoryStore()
	mw := streamx.Middleware(toolmeta.Config{}, store)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
		"https://api.anthropic.com/v1/messages", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	next := option.MiddlewareNext(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/event-stream; charset=utf-8"}},
			Body:       io.NopCloser(strings.NewReader(toolStream)),
		}, nil
	})

	resp, err := mw(req, next)
	if err != nil {
		t.Fatalf("middleware failed: %v", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if strings.Contains(string(out), "_displayName") {
		t.Fatalf("streaming body not transformed:\n%s", out)
	}
	if meta, _ := store.Get(context.Background(), "toolu_1"); meta == nil {
		t.Fatal("metadata not extracted from streamed body")
	}
}

func TestMiddleware_NonMessagesPathUntouched(t *testing.T) {
	mw := streamx.Middleware(toolmeta.Config{RichToolDescriptions: true}, toolmeta.NewMemoryStore())

	body := `{"tools":[{"name":"Bash","input_schema":{"type":"object","properties":{"command":{"type":"string"}}}}]}`
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		"https://api.anthropic.com/v1/models", strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	var seen string
	next := option.MiddlewareNext(func(r *http.Request) (*http.Response, error) {
		data, _ := io.ReadAll(r.Body)
		seen = string(data)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("{}")),
		}, nil
	})

	resp, err := mw(req, next)
	if err != nil {
		t.Fatalf("middleware failed: %v", err)
	}
	defer resp.Body.Close()

	if seen != body {
		t.Fatalf("non-messages request was rewritten:\n%s", seen)
	}
}
