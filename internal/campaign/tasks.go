package campaign

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskInitialOutreach = "campaign.outreach.initial"

// outreachMaxRetry bounds asynq redelivery for transient send failures.
const outreachMaxRetry = 3

type InitialOutreachPayload struct {
	TeamID   string `json:"teamId"`
	ClientID string `json:"clientId"`
}

func NewInitialOutreachTask(payload InitialOutreachPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInitialOutreach, data, asynq.MaxRetry(outreachMaxRetry)), nil
}

func ParseInitialOutreachPayload(task *asynq.Task) (InitialOutreachPayload, error) {
	var payload InitialOutreachPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return InitialOutreachPayload{}, err
	}
	return payload, nil
}
