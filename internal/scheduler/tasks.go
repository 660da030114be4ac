package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskRecomputeAges = "leads.recompute_ages"

const TaskRecomputeLenderStats = "lenders.recompute_stats"

type RecomputeAgesPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

type RecomputeLenderStatsPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
	LenderCode  string    `json:"lenderCode,omitempty"`
}

func NewRecomputeAgesTask(payload RecomputeAgesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecomputeAges, data), nil
}

func ParseRecomputeAgesPayload(task *asynq.Task) (RecomputeAgesPayload, error) {
	var payload RecomputeAgesPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RecomputeAgesPayload{}, err
	}
	return payload, nil
}

func NewRecomputeLenderStatsTask(payload RecomputeLenderStatsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecomputeLenderStats, data), nil
}

func ParseRecomputeLenderStatsPayload(task *asynq.Task) (RecomputeLenderStatsPayload, error) {
	var payload RecomputeLenderStatsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RecomputeLenderStatsPayload{}, err
	}
	return payload, nil
}
