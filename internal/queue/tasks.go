package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypeNotifyEdit = "edit:notify"

// NotifyEditPayload tells the worker to deliver an edit's outcome to the
// caller's webhook.
type NotifyEditPayload struct {
	EditID       string    `json:"edit_id"`
	Status       string    `json:"status"`
	WebhookURL   string    `json:"webhook_url"`
	TransformURL string    `json:"transform_url,omitempty"`
	StatusCode   int       `json:"status_code,omitempty"`
	DownloadPath string    `json:"download_path,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	Error        string    `json:"error,omitempty"`
	RequestedAt  time.Time `json:"requested_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

func NewNotifyEditTask(payload NotifyEditPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal notify payload: %w", err)
	}
	return asynq.NewTask(TypeNotifyEdit, body), nil
}

func ParseNotifyEditPayload(task *asynq.Task) (NotifyEditPayload, error) {
	var payload NotifyEditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotifyEditPayload{}, fmt.Errorf("unmarshal notify payload: %w", err)
	}
	if payload.EditID == "" || payload.WebhookURL == "" {
		return NotifyEditPayload{}, fmt.Errorf("notify payload requires edit_id and webhook_url")
	}
	return payload, nil
}
