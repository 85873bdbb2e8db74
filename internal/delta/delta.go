// Package delta defines the typed mutation operations that agents submit
// against a playbook, and their JSON wire form.
package delta

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rcliao/agent-playbook/internal/model"
)

var (
	// ErrInvalidOperationType is returned when an operation kind is not add, update, tag or remove.
	ErrInvalidOperationType = errors.New("invalid operation type")

	// ErrInvalidOperation is returned when a payload does not match the operation or batch schema.
	ErrInvalidOperation = errors.New("invalid operation")
)

// OpType is the kind of a delta operation.
type OpType int

const (
	OpAdd OpType = iota + 1
	OpUpdate
	OpTag
	OpRemove
)

func (t OpType) String() string {
	switch t {
	case OpAdd:
		return "ADD"
	case OpUpdate:
		return "UPDATE"
	case OpTag:
		return "TAG"
	case OpRemove:
		return "REMOVE"
	}
	return fmt.Sprintf("OpType(%d)", int(t))
}

// ParseOpType matches s case-insensitively against the known kinds.
func ParseOpType(s string) (OpType, error) {
	switch strings.ToUpper(s) {
	case "ADD":
		return OpAdd, nil
	case "UPDATE":
		return OpUpdate, nil
	case "TAG":
		return OpTag, nil
	case "REMOVE":
		return OpRemove, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidOperationType, strings.ToUpper(s))
}

// Operation is a single requested mutation.
//
// For ADD and UPDATE, Metadata holds absolute counter values. For TAG it holds
// signed increments.
type Operation struct {
	Type     OpType
	Section  string
	Content  *string
	BulletID *string
	Metadata model.Metadata
}

// ParseOperation validates payload and extracts an Operation from it.
// Metadata entries that are not integers, or whose key is not a tag name, are dropped.
func ParseOperation(payload map[string]any) (Operation, error) {
	if err := validate(operationSchema, payload); err != nil {
		return Operation{}, err
	}

	typ, err := ParseOpType(payload["type"].(string))
	if err != nil {
		return Operation{}, err
	}

	op := Operation{
		Type:     typ,
		Content:  optString(payload, "content"),
		BulletID: optString(payload, "bullet_id"),
	}
	if s := optString(payload, "section"); s != nil {
		op.Section = *s
	}

	if raw, ok := payload["metadata"].(map[string]any); ok {
		counts := make(map[string]int, len(raw))
		for k, v := range raw {
			if n, ok := toInt(v); ok {
				counts[k] = n
			}
		}
		op.Metadata = model.MetadataFromMap(counts)
	}

	return op, nil
}

// Map returns the wire form of op. Absent optional fields are omitted.
func (op Operation) Map() map[string]any {
	m := map[string]any{
		"type":    strings.ToLower(op.Type.String()),
		"section": op.Section,
	}
	if op.Content != nil {
		m["content"] = *op.Content
	}
	if op.BulletID != nil {
		m["bullet_id"] = *op.BulletID
	}
	if md := op.Metadata.Map(); md != nil {
		m["metadata"] = md
	}
	return m
}

func (op Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(op.Map())
}

func (op *Operation) UnmarshalJSON(data []byte) error {
	var payload map[string]any
	if err := unmarshalNumbers(data, &payload); err != nil {
		return err
	}
	parsed, err := ParseOperation(payload)
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// Batch is an ordered list of operations with the rationale that produced them.
type Batch struct {
	Reasoning  string
	Operations []Operation
}

// ParseBatch validates payload and parses every operation in order. The first
// invalid operation aborts the parse.
func ParseBatch(payload map[string]any) (Batch, error) {
	if err := validate(batchSchema, payload); err != nil {
		return Batch{}, err
	}

	var b Batch
	if s := optString(payload, "reasoning"); s != nil {
		b.Reasoning = *s
	}

	items, _ := payload["operations"].([]any)
	for i, item := range items {
		obj, _ := item.(map[string]any)
		op, err := ParseOperation(obj)
		if err != nil {
			return Batch{}, fmt.Errorf("operation %d: %w", i, err)
		}
		b.Operations = append(b.Operations, op)
	}
	return b, nil
}

// Map returns the wire form of b.
func (b Batch) Map() map[string]any {
	ops := make([]any, 0, len(b.Operations))
	for _, op := range b.Operations {
		ops = append(ops, op.Map())
	}
	return map[string]any{
		"reasoning":  b.Reasoning,
		"operations": ops,
	}
}

func (b Batch) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Map())
}

func (b *Batch) UnmarshalJSON(data []byte) error {
	parsed, err := DecodeBatch(data)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func optString(payload map[string]any, key string) *string {
	s, ok := payload[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case float64:
		// integers beyond 2^53 are not exact in a float64
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
