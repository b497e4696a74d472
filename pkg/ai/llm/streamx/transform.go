package streamx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Abraxas-365/agentwire/pkg/ai/llm/toolmeta"
	"github.com/Abraxas-365/agentwire/pkg/logx"
)

// sseEnvelope is the subset of each frame's JSON payload the transform needs
type sseEnvelope struct {
	Type  string `json:"type"`
	Index int64  `json:"index"`

	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`

	Delta *struct {
		Type        string `json:"type"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
}

// trackedBlock buffers the streamed input of one in-flight tool_use block
type trackedBlock struct {
	id    string
	name  string
	input strings.Builder
}

// Transform rewrites a Messages API SSE stream frame by frame. For each
// tool_use content block it suppresses the incremental input_json_delta
// events, buffers their payloads, and at content_block_stop re-emits the
// whole input as a single delta with the metadata keys extracted into the
// store. All other frames pass through in arrival order, unmodified.
//
// One Transform handles one stream; it is not safe for concurrent use.
type Transform struct {
	ctx     context.Context
	store   toolmeta.Store
	frames  *FrameBuffer
	tracked map[int64]*trackedBlock
}

// NewTransform creates a transform writing extracted metadata to store.
// A nil store disables extraction; stripping still happens.
func NewTransform(ctx context.Context, store toolmeta.Store) *Transform {
	return &Transform{
		ctx:     ctx,
		store:   store,
		frames:  NewFrameBuffer(),
		tracked: make(map[int64]*trackedBlock),
	}
}

// Process consumes one chunk of the raw stream and returns the transformed
// bytes ready for the downstream parser. Chunks may split frames anywhere.
func (t *Transform) Process(chunk []byte) []byte {
	var out bytes.Buffer
	for _, frame := range t.frames.Write(chunk) {
		t.handleFrame(frame, &out)
	}
	return out.Bytes()
}

// Flush drains the transform at stream end or abort. Any frame still missing
// its terminator is processed, and every still-tracked block is consolidated
// and closed so buffered tool input is never lost to a truncated response.
func (t *Transform) Flush() []byte {
	var out bytes.Buffer

	if frame := t.frames.Flush(); frame != nil {
		t.handleFrame(*frame, &out)
	}

	indexes := make([]int64, 0, len(t.tracked))
	for idx := range t.tracked {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	for _, idx := range indexes {
		block := t.tracked[idx]
		delete(t.tracked, idx)
		t.consolidate(idx, block, &out)
		writeStopFrame(&out, idx)
	}

	return out.Bytes()
}

func (t *Transform) handleFrame(frame Frame, out *bytes.Buffer) {
	if frame.Data == "" {
		frame.appendTo(out)
		return
	}

	var env sseEnvelope
	if err := json.Unmarshal([]byte(frame.Data), &env); err != nil {
		frame.appendTo(out)
		return
	}

	switch env.Type {
	case "content_block_start":
		cb := env.ContentBlock
		if cb != nil && cb.Type == "tool_use" && cb.ID != "" && cb.Name != "" {
			t.tracked[env.Index] = &trackedBlock{id: cb.ID, name: cb.Name}
		}
		frame.appendTo(out)

	case "content_block_delta":
		block, ok := t.tracked[env.Index]
		if !ok || env.Delta == nil || env.Delta.Type != "input_json_delta" {
			frame.appendTo(out)
			return
		}
		block.input.WriteString(env.Delta.PartialJSON)
		// Suppressed: the whole input is re-emitted at block stop.

	case "content_block_stop":
		block, ok := t.tracked[env.Index]
		if !ok {
			frame.appendTo(out)
			return
		}
		delete(t.tracked, env.Index)
		t.consolidate(env.Index, block, out)
		frame.appendTo(out)

	default:
		frame.appendTo(out)
	}
}

// consolidate emits the block's buffered input as one input_json_delta with
// the metadata keys removed. Malformed JSON goes out verbatim instead:
// dropping buffered input would corrupt the tool call, while a failed
// metadata extraction only costs cosmetics.
func (t *Transform) consolidate(index int64, block *trackedBlock, out *bytes.Buffer) {
	buffered := block.input.String()
	if buffered == "" {
		return
	}

	payload := buffered
	clean, meta, found, err := toolmeta.ExtractInput([]byte(buffered))
	if err != nil {
		logx.WithField("tool", block.name).
			WithField("tool_use_id", block.id).
			Debugf("streamx: forwarding unparseable tool input verbatim: %v", err)
	} else {
		payload = string(clean)
		if found && t.store != nil {
			if putErr := t.store.Put(t.ctx, block.id, meta); putErr != nil {
				logx.WithField("tool_use_id", block.id).
					Debugf("streamx: metadata store put failed: %v", putErr)
			}
		}
	}

	writeDeltaFrame(out, index, payload)
}

func writeDeltaFrame(out *bytes.Buffer, index int64, partialJSON string) {
	data, err := json.Marshal(struct {
		Type  string `json:"type"`
		Index int64  `json:"index"`
		Delta struct {
			Type        string `json:"type"`
			PartialJSON string `json:"partial_json"`
		} `json:"delta"`
	}{
		Type:  "content_block_delta",
		Index: index,
		Delta: struct {
			Type        string `json:"type"`
			PartialJSON string `json:"partial_json"`
		}{Type: "input_json_delta", PartialJSON: partialJSON},
	})
	if err != nil {
		return
	}
	out.WriteString("event: content_block_delta\ndata: ")
	out.Write(data)
	out.WriteString("\n\n")
}

func writeStopFrame(out *bytes.Buffer, index int64) {
	fmt.Fprintf(out, "event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":%d}\n\n", index)
}
