package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskWarmContext = "context.warm"

const TaskPurgeCache = "context.cache.purge"

// WarmContextPayload identifies a location whose provider data should be
// pulled into the caches ahead of the first report. Either Query or both
// coordinates are set.
type WarmContextPayload struct {
	Query        string   `json:"query,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	RadiusMeters int      `json:"radiusMeters,omitempty"`
}

// PurgeCachePayload overrides the configured grace period for one purge run.
type PurgeCachePayload struct {
	GraceSeconds int64 `json:"graceSeconds,omitempty"`
}

func NewWarmContextTask(payload WarmContextPayload) (*asynq.Task, error) {
	if payload.Query == "" && (payload.Latitude == nil || payload.Longitude == nil) {
		return nil, fmt.Errorf("warm task needs a query or coordinates")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWarmContext, data), nil
}

func ParseWarmContextPayload(task *asynq.Task) (WarmContextPayload, error) {
	var payload WarmContextPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WarmContextPayload{}, err
	}
	return payload, nil
}

func NewPurgeCacheTask(payload PurgeCachePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeCache, data), nil
}

func ParsePurgeCachePayload(task *asynq.Task) (PurgeCachePayload, error) {
	var payload PurgeCachePayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PurgeCachePayload{}, err
	}
	return payload, nil
}
