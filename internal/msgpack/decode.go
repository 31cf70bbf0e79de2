// Package msgpack provides MessagePack encoding/decoding for rule documents.
// Rules stored or transported as MessagePack keep the JSON shape:
// arrays for connectives, maps for leaves.
package msgpack

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// DecodeValue deserializes MessagePack data into its native form
// ([]any, map[string]any and scalars).
func DecodeValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty MessagePack data")
	}

	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}

	return v, nil
}

// Encode serializes a Go value into MessagePack format.
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	return data, nil
}
