package toolmeta

import (
	"context"
	"encoding/json"
)

// PrepareRequestBody rewrites one outgoing Messages API request body:
// tool schemas gain the metadata properties and prior assistant turns get
// their stored metadata restored. Every key the rewrite does not touch keeps
// its original position so the prompt-cache prefix survives.
//
// The boolean reports whether the body changed; callers keep the original
// bytes when it is false.
func PrepareRequestBody(ctx context.Context, body []byte, cfg Config, store Store) ([]byte, bool, error) {
	root, err := parseOrderedObject(body)
	if err != nil {
		return nil, false, errorRegistry.NewWithCause(ErrInvalidRequestBody, err)
	}

	changed := false

	if toolsRaw, ok := root.get("tools"); ok {
		var tools []json.RawMessage
		if err := json.Unmarshal(toolsRaw, &tools); err != nil {
			return nil, false, errorRegistry.NewWithCause(ErrInvalidRequestBody, err)
		}
		augmented, didChange, err := AugmentTools(tools, cfg)
		if err != nil {
			return nil, false, err
		}
		if didChange {
			newTools, err := json.Marshal(augmented)
			if err != nil {
				return nil, false, err
			}
			root.set("tools", newTools)
			changed = true
		}
	}

	if store != nil {
		if messagesRaw, ok := root.get("messages"); ok {
			var messages []json.RawMessage
			if err := json.Unmarshal(messagesRaw, &messages); err != nil {
				return nil, false, errorRegistry.NewWithCause(ErrInvalidRequestBody, err)
			}
			reinjected, didChange, err := ReinjectMessages(ctx, messages, store)
			if err != nil {
				return nil, false, err
			}
			if didChange {
				newMessages, err := json.Marshal(reinjected)
				if err != nil {
					return nil, false, err
				}
				root.set("messages", newMessages)
				changed = true
			}
		}
	}

	if !changed {
		return body, false, nil
	}
	out, err := root.marshal()
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
