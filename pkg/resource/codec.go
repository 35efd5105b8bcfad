package resource

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/coachpo/starkbank/errs"
)

// Decode builds one entity from its wire object. Unknown keys are ignored; a
// missing id is a construction failure.
func Decode[T Identifiable](d Descriptor[T], raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 || string(raw) == "null" {
		return out, errs.Input(d.Name, "empty entity payload")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errs.Input(d.Name, "decode entity", errs.WithCause(err))
	}
	if out.Identity() == "" {
		return out, errs.Input(d.Name, "entity payload missing id")
	}
	return out, nil
}

// DecodeMany decodes a list of wire objects preserving their order.
func DecodeMany[T Identifiable](d Descriptor[T], raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		item, err := Decode(d, raw)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// DecodeEnvelope reads a single-entity response of the form {"<key>": {...}}.
func DecodeEnvelope[T Identifiable](d Descriptor[T], body []byte) (T, error) {
	var zero T
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return zero, errs.Input(d.Name, "decode response envelope", errs.WithCause(err))
	}
	raw, ok := envelope[d.Key()]
	if !ok {
		return zero, errs.Input(d.Name, fmt.Sprintf("response missing %q key", d.Key()))
	}
	return Decode(d, raw)
}

// DecodeList reads a list response of the form {"<plural>": [...], "cursor": "..."}.
func DecodeList[T Identifiable](d Descriptor[T], body []byte) ([]T, string, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", errs.Input(d.Name, "decode list envelope", errs.WithCause(err))
	}
	var raws []json.RawMessage
	if raw, ok := envelope[d.PluralKey()]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &raws); err != nil {
			return nil, "", errs.Input(d.Name, fmt.Sprintf("decode %q list", d.PluralKey()), errs.WithCause(err))
		}
	}
	var cursor string
	if raw, ok := envelope["cursor"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &cursor); err != nil {
			return nil, "", errs.Input(d.Name, "decode cursor", errs.WithCause(err))
		}
	}
	items, err := DecodeMany(d, raws)
	if err != nil {
		return nil, "", err
	}
	return items, cursor, nil
}

// Encode converts an entity or update payload into its wire object. Fields
// left unset are omitted rather than sent as null.
func Encode(v any) (map[string]any, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Input("", "encode payload", errs.WithCause(err))
	}
	out := make(map[string]any)
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&out); err != nil {
		return nil, errs.Input("", "encode payload", errs.WithCause(err))
	}
	prune(out)
	return out, nil
}

// prune drops null members at every depth.
func prune(v any) {
	switch value := v.(type) {
	case map[string]any:
		for key, member := range value {
			if member == nil {
				delete(value, key)
				continue
			}
			prune(member)
		}
	case []any:
		for _, member := range value {
			prune(member)
		}
	}
}

// EncodeMany encodes entities for a batch create request body.
func EncodeMany[T any](items []T) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		encoded, err := Encode(items[i])
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		delete(encoded, "id")
		out = append(out, encoded)
	}
	return out, nil
}
