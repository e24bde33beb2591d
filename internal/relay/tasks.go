package relay

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSessionStarted = "relay:session_started"

// SessionStarted tells the workflow relay that an account's dialing session
// began. The relay answers by driving DispatchNext until the queue drains.
type SessionStarted struct {
	AccountID   string    `json:"accountId"`
	AgentID     string    `json:"agentId,omitempty"`
	QueueLength int       `json:"queueLength"`
	Trigger     string    `json:"trigger"`
	StartedAt   time.Time `json:"startedAt"`
}

const (
	TriggerManual    = "manual"
	TriggerSchedule  = "schedule"
	TriggerOverride  = "override"
	TriggerAutomated = "automation"
)

func NewSessionStartedTask(p SessionStarted) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionStarted, data), nil
}

func ParseSessionStartedPayload(task *asynq.Task) (SessionStarted, error) {
	var p SessionStarted
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return SessionStarted{}, err
	}
	return p, nil
}
