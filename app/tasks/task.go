package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeDiscoverListings TaskType = "discover_listings"
	TaskTypeExpireListings   TaskType = "expire_listings"
	TaskTypeUpdateDigest     TaskType = "update_digest"
	TaskTypeMaintenance      TaskType = "maintenance"
)

// Lane is a periodic schedule. Tasks of one lane never run concurrently.
type Lane string

const (
	LaneDiscovery   Lane = "discovery"
	LaneMaintenance Lane = "maintenance"
)

func ParseLane(name string) (Lane, bool) {
	switch Lane(name) {
	case LaneDiscovery, LaneMaintenance:
		return Lane(name), true
	}
	return "", false
}

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetLane() Lane
	Start()
	GetDuration() time.Duration
}

// Task carries the bookkeeping shared by every task. Failed tasks are not
// retried: the next tick of the lane runs a fresh cycle.
type Task struct {
	ID        string
	Type      TaskType
	Lane      Lane
	StartedAt *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetLane() Lane {
	return t.Lane
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, lane Lane) Task {
	return Task{
		ID:   uuid.NewString(),
		Type: taskType,
		Lane: lane,
	}
}
