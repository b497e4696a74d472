package toolmeta

import (
	"context"
	"encoding/json"
)

// ReinjectMessages restores stored metadata into the tool_use blocks of prior
// assistant messages in an outgoing request. The model imitates its own
// earlier turns: once it sees history where tool calls lack the metadata
// keys, it stops emitting them, and the degradation feeds on itself. Putting
// the keys back keeps every assistant turn in history looking the way the
// model originally produced it.
//
// Blocks that already carry a metadata key, and blocks with nothing stored
// under their id, pass through untouched.
func ReinjectMessages(ctx context.Context, messages []json.RawMessage, store Store) ([]json.RawMessage, bool, error) {
	if store == nil {
		return nil, false, errorRegistry.New(ErrNilStore)
	}

	changed := false
	out := make([]json.RawMessage, len(messages))
	for i, raw := range messages {
		rewritten, didChange, err := reinjectMessage(ctx, raw, store)
		if err != nil {
			return nil, false, err
		}
		out[i] = rewritten
		changed = changed || didChange
	}
	return out, changed, nil
}

func reinjectMessage(ctx context.Context, message json.RawMessage, store Store) (json.RawMessage, bool, error) {
	msg, err := parseOrderedObject(message)
	if err != nil {
		return nil, false, errorRegistry.NewWithCause(ErrInvalidRequestBody, err)
	}

	role, _ := msg.stringValue("role")
	if role != "assistant" {
		return message, false, nil
	}

	contentRaw, ok := msg.get("content")
	if !ok || len(contentRaw) == 0 || contentRaw[0] != '[' {
		return message, false, nil
	}

	var blocks []json.RawMessage
	if err := json.Unmarshal(contentRaw, &blocks); err != nil {
		return nil, false, errorRegistry.NewWithCause(ErrInvalidRequestBody, err)
	}

	changed := false
	for i, blockRaw := range blocks {
		rewritten, didChange, err := reinjectBlock(ctx, blockRaw, store)
		if err != nil {
			return nil, false, err
		}
		blocks[i] = rewritten
		changed = changed || didChange
	}
	if !changed {
		return message, false, nil
	}

	newContent, err := json.Marshal(blocks)
	if err != nil {
		return nil, false, err
	}
	msg.set("content", newContent)
	out, err := msg.marshal()
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func reinjectBlock(ctx context.Context, block json.RawMessage, store Store) (json.RawMessage, bool, error) {
	obj, err := parseOrderedObject(block)
	if err != nil {
		// Not an object; leave the block alone.
		return block, false, nil
	}

	blockType, _ := obj.stringValue("type")
	if blockType != "tool_use" {
		return block, false, nil
	}
	id, ok := obj.stringValue("id")
	if !ok || id == "" {
		return block, false, nil
	}

	inputRaw, ok := obj.get("input")
	if !ok {
		return block, false, nil
	}
	input, err := parseOrderedObject(inputRaw)
	if err != nil {
		return block, false, nil
	}
	if input.has(KeyIntent) || input.has(KeyDisplayName) {
		return block, false, nil
	}

	meta, err := store.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if meta == nil || meta.Empty() {
		return block, false, nil
	}

	// Mirror the augmenter's ordering: _displayName first, then _intent,
	// then the original keys in their original order.
	if meta.Intent != "" {
		intentJSON, err := json.Marshal(meta.Intent)
		if err != nil {
			return nil, false, err
		}
		input.prepend(KeyIntent, intentJSON)
	}
	if meta.DisplayName != "" {
		displayJSON, err := json.Marshal(meta.DisplayName)
		if err != nil {
			return nil, false, err
		}
		input.prepend(KeyDisplayName, displayJSON)
	}

	newInput, err := input.marshal()
	if err != nil {
		return nil, false, err
	}
	obj.set("input", newInput)
	out, err := obj.marshal()
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
