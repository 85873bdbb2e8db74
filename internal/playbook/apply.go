package playbook

import (
	"fmt"

	"github.com/rcliao/agent-playbook/internal/delta"
	"github.com/rcliao/agent-playbook/internal/model"
)

// OpError reports the operation that stopped a batch. Index is also the
// number of operations that were applied before it.
type OpError struct {
	Index int
	Type  delta.OpType
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("operation %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// ApplyDelta applies the batch operations in order. It stops at the first
// failing operation and returns an *OpError; the effects of earlier
// operations are kept.
func (p *Playbook) ApplyDelta(b delta.Batch) error {
	for i, op := range b.Operations {
		if err := p.applyOperation(op); err != nil {
			return &OpError{Index: i, Type: op.Type, Err: err}
		}
	}
	return nil
}

func (p *Playbook) applyOperation(op delta.Operation) error {
	switch op.Type {
	case delta.OpAdd:
		content := ""
		if op.Content != nil {
			content = *op.Content
		}
		p.AddBullet(op.Section, content, op.BulletID, absoluteMetadata(op.Metadata))
		return nil

	case delta.OpUpdate:
		if op.BulletID == nil {
			return fmt.Errorf("%w: bullet_id required for UPDATE", ErrDeltaMissingField)
		}
		_, err := p.UpdateBullet(*op.BulletID, op.Content, absoluteMetadata(op.Metadata))
		return err

	case delta.OpTag:
		if op.BulletID == nil {
			return fmt.Errorf("%w: bullet_id required for TAG", ErrDeltaMissingField)
		}
		var err error
		op.Metadata.Each(func(t model.Tag, inc int) {
			if err == nil {
				_, err = p.TagBullet(*op.BulletID, t.String(), inc)
			}
		})
		return err

	case delta.OpRemove:
		if op.BulletID == nil {
			return fmt.Errorf("%w: bullet_id required for REMOVE", ErrDeltaMissingField)
		}
		p.RemoveBullet(*op.BulletID)
		return nil
	}
	return fmt.Errorf("%w: %s", delta.ErrInvalidOperationType, op.Type)
}

// absoluteMetadata returns nil for empty metadata, otherwise a copy with
// negative values clamped to 0.
func absoluteMetadata(md model.Metadata) *model.Metadata {
	if md.Len() == 0 {
		return nil
	}
	c := md.Clamped()
	return &c
}
