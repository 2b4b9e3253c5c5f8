package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditChainVerify walks the audit hash chain and reports breaks.
	TaskAuditChainVerify = "audit:chain:verify"
)

// AuditChainPayload tunes one verification run.
type AuditChainPayload struct {
	BatchSize int `json:"batch_size"`
}

// NewAuditChainTask constructs the verification task.
func NewAuditChainTask(batchSize int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditChainPayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditChainVerify, data), nil
}
