package toolmeta

import (
	"encoding/json"
	"strings"
	"time"
)

// Schema fragments for the injected properties. Kept as fixed byte strings so
// the serialized form is identical on every request.
var (
	displayNameSchema = json.RawMessage(`{"type":"string","description":"A short 2-4 word label describing this specific invocation, e.g. \"Reading config file\""}`)
	intentSchema      = json.RawMessage(`{"type":"string","description":"One or two sentences explaining why this tool is being invoked as part of the current task"}`)
)

// mcpPrefix marks externally namespaced (MCP server) tools, which always get
// the metadata properties regardless of the global flag.
const mcpPrefix = "mcp__"

// ShouldAugment reports whether a tool's schema gets the metadata properties
func ShouldAugment(toolName string, cfg Config) bool {
	return cfg.RichToolDescriptions || strings.HasPrefix(toolName, mcpPrefix)
}

// AugmentToolSchema injects _displayName and _intent as the first two keys of
// the tool's input_schema.properties and the first two entries of required.
// Existing properties keep their relative order after them, so the serialized
// schema prefix stays stable across turns. Re-running on an already augmented
// tool replaces the entries instead of duplicating them.
//
// The second return value reports whether the definition was changed.
func AugmentToolSchema(tool json.RawMessage, cfg Config) (json.RawMessage, bool, error) {
	obj, err := parseOrderedObject(tool)
	if err != nil {
		return nil, false, errorRegistry.NewWithCause(ErrInvalidToolSchema, err)
	}

	name, _ := obj.stringValue("name")
	if !ShouldAugment(name, cfg) {
		return tool, false, nil
	}

	schemaRaw, ok := obj.get("input_schema")
	if !ok {
		return tool, false, nil
	}
	schema, err := parseOrderedObject(schemaRaw)
	if err != nil {
		return nil, false, errorRegistry.NewWithCause(ErrInvalidToolSchema, err).
			WithDetail("tool", name)
	}

	propsRaw, ok := schema.get("properties")
	if !ok {
		return tool, false, nil
	}
	props, err := parseOrderedObject(propsRaw)
	if err != nil {
		return nil, false, errorRegistry.NewWithCause(ErrInvalidToolSchema, err).
			WithDetail("tool", name)
	}

	// Prepend in reverse so _displayName ends up first.
	props.prepend(KeyIntent, intentSchema)
	props.prepend(KeyDisplayName, displayNameSchema)

	newProps, err := props.marshal()
	if err != nil {
		return nil, false, err
	}
	schema.set("properties", newProps)

	required := decodeStringArray(schema, "required")
	required = prependRequired(required)
	newRequired, err := json.Marshal(required)
	if err != nil {
		return nil, false, err
	}
	schema.set("required", newRequired)

	newSchema, err := schema.marshal()
	if err != nil {
		return nil, false, err
	}
	obj.set("input_schema", newSchema)

	out, err := obj.marshal()
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// AugmentTools applies AugmentToolSchema to every element of a tools array
func AugmentTools(tools []json.RawMessage, cfg Config) ([]json.RawMessage, bool, error) {
	changed := false
	out := make([]json.RawMessage, len(tools))
	for i, tool := range tools {
		augmented, didChange, err := AugmentToolSchema(tool, cfg)
		if err != nil {
			return nil, false, err
		}
		out[i] = augmented
		changed = changed || didChange
	}
	return out, changed, nil
}

// ExtractInput pulls the metadata keys out of a complete tool input object.
// It returns the input with both keys removed (remaining keys in original
// order) and the extracted metadata stamped with the current time. When
// neither key is present the input is returned unchanged and meta is zero.
func ExtractInput(input []byte) (clean json.RawMessage, meta Metadata, found bool, err error) {
	obj, parseErr := parseOrderedObject(input)
	if parseErr != nil {
		return nil, Metadata{}, false, parseErr
	}

	intent, hasIntent := obj.stringValue(KeyIntent)
	displayName, hasDisplay := obj.stringValue(KeyDisplayName)
	if !hasIntent && !hasDisplay {
		// Still re-serialize so callers get a consolidated object either way.
		clean, err = obj.marshal()
		return clean, Metadata{}, false, err
	}

	obj.delete(KeyIntent)
	obj.delete(KeyDisplayName)
	clean, err = obj.marshal()
	if err != nil {
		return nil, Metadata{}, false, err
	}

	return clean, Metadata{
		Intent:      intent,
		DisplayName: displayName,
		Timestamp:   time.Now().UTC(),
	}, true, nil
}

func decodeStringArray(obj *orderedObject, key string) []string {
	raw, ok := obj.get(key)
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// prependRequired puts the metadata keys first, dropping prior occurrences
func prependRequired(required []string) []string {
	out := []string{KeyDisplayName, KeyIntent}
	for _, r := range required {
		if r == KeyDisplayName || r == KeyIntent {
			continue
		}
		out = append(out, r)
	}
	return out
}
