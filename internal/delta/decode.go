package delta

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// DecodeBatch parses a batch from raw JSON. Comments and trailing commas are
// tolerated since batches are usually produced by an LLM.
func DecodeBatch(data []byte) (Batch, error) {
	var payload map[string]any
	if err := unmarshalNumbers(jsonc.ToJSON(data), &payload); err != nil {
		return Batch{}, fmt.Errorf("decode batch: %w", err)
	}
	return ParseBatch(payload)
}

// DecodeOperation parses a single operation from raw JSON.
func DecodeOperation(data []byte) (Operation, error) {
	var payload map[string]any
	if err := unmarshalNumbers(jsonc.ToJSON(data), &payload); err != nil {
		return Operation{}, fmt.Errorf("decode operation: %w", err)
	}
	return ParseOperation(payload)
}

// unmarshalNumbers decodes with json.Number so 1.0 and 1 stay distinguishable.
func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
