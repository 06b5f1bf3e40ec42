package events

import (
	"context"
	"time"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
)

// Kind identifies the event payload shape.
type Kind string

const (
	KindThought          Kind = "thought"
	KindSkeleton         Kind = "skeleton"
	KindOutlineApproval  Kind = "outline_approval"
	KindWorkflowProgress Kind = "workflow_progress"
)

// Event is one message on a project's stream.
type Event struct {
	Kind      Kind      `json:"kind"`
	ProjectID string    `json:"project_id"`
	At        time.Time `json:"at"`
	Data      any       `json:"data"`
}

// ThoughtData narrates what a step is doing, for live UIs.
type ThoughtData struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// SkeletonData carries the proposal outline once it is ready.
type SkeletonData struct {
	ProjectID string                  `json:"project_id"`
	Outline   []models.OutlineSection `json:"outline"`
}

// OutlineApprovalData records a human decision on the outline.
type OutlineApprovalData struct {
	ProjectID string    `json:"project_id"`
	Approved  bool      `json:"approved"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressData reports a node transition.
type ProgressData struct {
	Step   string   `json:"step"`
	Status string   `json:"status"`
	Score  *float64 `json:"score,omitempty"`
}

// Emitter fans an event out to project subscribers. Implementations must
// not block the caller; a slow or absent subscriber costs at most a
// dropped event.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}

func Thought(projectID, step, message, detail string) Event {
	return Event{
		Kind:      KindThought,
		ProjectID: projectID,
		At:        time.Now().UTC(),
		Data:      ThoughtData{Step: step, Message: message, Detail: detail},
	}
}

func Skeleton(projectID string, outline []models.OutlineSection) Event {
	return Event{
		Kind:      KindSkeleton,
		ProjectID: projectID,
		At:        time.Now().UTC(),
		Data:      SkeletonData{ProjectID: projectID, Outline: outline},
	}
}

func OutlineApproval(projectID string, approved bool, at time.Time) Event {
	return Event{
		Kind:      KindOutlineApproval,
		ProjectID: projectID,
		At:        at,
		Data:      OutlineApprovalData{ProjectID: projectID, Approved: approved, Timestamp: at},
	}
}

func Progress(projectID, step, status string, score *float64) Event {
	return Event{
		Kind:      KindWorkflowProgress,
		ProjectID: projectID,
		At:        time.Now().UTC(),
		Data:      ProgressData{Step: step, Status: status, Score: score},
	}
}
