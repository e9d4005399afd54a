package core

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	CredentialPayloadFormatTaggedJSON = "tagged_binary_json"
	CredentialPayloadVersionV1        = 1

	bytesTag = "$bytes"
)

// CredentialCodec converts arbitrary credential structures to and from
// their stored representation. Values may contain binary leaves at any
// nesting depth; the codec must preserve them exactly.
type CredentialCodec interface {
	Format() string
	Version() int
	Encode(value any) (json.RawMessage, error)
	Decode(payload json.RawMessage) (any, error)
}

// TaggedJSONCredentialCodec stores credential material as JSON with every
// binary leaf replaced by a {"$bytes": "<base64>"} wrapper. Encode and
// Decode are exact inverses over binary-containing structures, which is
// what lets the protocol engine round-trip signing keys through the
// document store without corruption.
type TaggedJSONCredentialCodec struct{}

func (TaggedJSONCredentialCodec) Format() string {
	return CredentialPayloadFormatTaggedJSON
}

func (TaggedJSONCredentialCodec) Version() int {
	return CredentialPayloadVersionV1
}

func (c TaggedJSONCredentialCodec) Encode(value any) (json.RawMessage, error) {
	tagged, err := tagBinary(value)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(tagged)
	if err != nil {
		return nil, fmt.Errorf("core: encode credential payload: %w", err)
	}
	return encoded, nil
}

func (c TaggedJSONCredentialCodec) Decode(payload json.RawMessage) (any, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("core: credential payload is empty")
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("core: decode credential payload: %w", err)
	}
	return untagBinary(decoded)
}

func tagBinary(value any) (any, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return map[string]any{bytesTag: base64.StdEncoding.EncodeToString(typed)}, nil
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, entry := range typed {
			tagged, err := tagBinary(entry)
			if err != nil {
				return nil, err
			}
			out[key] = tagged
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			tagged, err := tagBinary(typed[i])
			if err != nil {
				return nil, err
			}
			out[i] = tagged
		}
		return out, nil
	case string, bool, float64, int, int64, json.Number:
		return typed, nil
	default:
		// Unknown composites round-trip through plain JSON; the engine
		// hands the adapter map/slice/scalar shapes only.
		return typed, nil
	}
}

func untagBinary(value any) (any, error) {
	switch typed := value.(type) {
	case map[string]any:
		if encoded, ok := typed[bytesTag]; ok && len(typed) == 1 {
			text, ok := encoded.(string)
			if !ok {
				return nil, fmt.Errorf("core: malformed %s wrapper: %T", bytesTag, encoded)
			}
			raw, err := base64.StdEncoding.DecodeString(text)
			if err != nil {
				return nil, fmt.Errorf("core: decode %s wrapper: %w", bytesTag, err)
			}
			return raw, nil
		}
		out := make(map[string]any, len(typed))
		for key, entry := range typed {
			decoded, err := untagBinary(entry)
			if err != nil {
				return nil, err
			}
			out[key] = decoded
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			decoded, err := untagBinary(typed[i])
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return out, nil
	default:
		return typed, nil
	}
}
