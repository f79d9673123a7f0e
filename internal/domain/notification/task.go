package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeDispatch identifies queued dispatches on the wire.
const TaskTypeDispatch = "notification:dispatch"

// DispatchTaskPayload is the JSON body of a TaskTypeDispatch task. A single
// Notify is queued as a one-element UserIDs list.
type DispatchTaskPayload struct {
	UserIDs    []string         `json:"user_ids"`
	Type       NotificationType `json:"type"`
	Payload    Payload          `json:"payload"`
	Options    Options          `json:"options"`
	EnqueuedAt time.Time        `json:"enqueued_at,omitzero"`
}

// Validate rejects payloads that no retry could fix.
func (p *DispatchTaskPayload) Validate() error {
	if !IsValidType(p.Type) {
		return fmt.Errorf("unsupported notification type %q", p.Type)
	}
	return nil
}

// NewDispatchTask encodes p, stamping EnqueuedAt when the caller left it unset.
func NewDispatchTask(p *DispatchTaskPayload) (*asynq.Task, error) {
	if p.EnqueuedAt.IsZero() {
		p.EnqueuedAt = time.Now().UTC()
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeDispatch, body), nil
}

// ParseDispatchTaskPayload decodes a task body produced by NewDispatchTask.
func ParseDispatchTaskPayload(data []byte) (*DispatchTaskPayload, error) {
	p := &DispatchTaskPayload{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("unmarshaling task payload: %w", err)
	}
	return p, nil
}
