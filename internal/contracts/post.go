package contracts

import (
	"fmt"
	"time"
)

// LifecycleState is the state of a post record in the pipeline
// ⭐ SSOT: 포스트 상태 정의는 여기서만
type LifecycleState string

const (
	StateAssigned    LifecycleState = "assigned"
	StateReadyToGen  LifecycleState = "ready_to_gen"
	StateReadyToPost LifecycleState = "ready_to_post"
	StatePublished   LifecycleState = "published"
	StateCollecting  LifecycleState = "collecting"
	StateDone        LifecycleState = "done"
	StateError       LifecycleState = "error"
)

// Order returns the position of the state in the fixed lifecycle order.
// StateError is an excursion, not part of the order, and returns -1.
func (s LifecycleState) Order() int {
	switch s {
	case StateAssigned:
		return 0
	case StateReadyToGen:
		return 1
	case StateReadyToPost:
		return 2
	case StatePublished:
		return 3
	case StateCollecting:
		return 4
	case StateDone:
		return 5
	default:
		return -1
	}
}

// Terminal reports whether no further transitions are possible
func (s LifecycleState) Terminal() bool {
	return s == StateDone || s == StateError
}

// Valid reports whether s is a known lifecycle state
func (s LifecycleState) Valid() bool {
	return s.Order() >= 0 || s == StateError
}

// Horizon is a fixed elapsed-time checkpoint after publication
// ⭐ SSOT: 수집 호라이즌 정의는 여기서만
type Horizon string

const (
	Horizon1h Horizon = "1h"
	Horizon1d Horizon = "1d"
	Horizon7d Horizon = "7d"
)

// AllHorizons returns every horizon in due order
func AllHorizons() []Horizon {
	return []Horizon{Horizon1h, Horizon1d, Horizon7d}
}

// Offset returns the elapsed time after publish at which the horizon is due
func (h Horizon) Offset() time.Duration {
	switch h {
	case Horizon1h:
		return time.Hour
	case Horizon1d:
		return 24 * time.Hour
	case Horizon7d:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether h is a known horizon
func (h Horizon) Valid() bool {
	return h == Horizon1h || h == Horizon1d || h == Horizon7d
}

// CollectionStatus is the per-horizon collection state
type CollectionStatus string

const (
	CollectionPending CollectionStatus = "pending"
	CollectionDone    CollectionStatus = "done"
	CollectionError   CollectionStatus = "error"
)

// Terminal reports whether the horizon will never be collected again
func (s CollectionStatus) Terminal() bool {
	return s == CollectionDone || s == CollectionError
}

// Stock identifies one listed stock
type Stock struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"` // KOSPI, KOSDAQ
}

// Persona is the identity a post is generated and published under.
// Credentials live in config, not here.
type Persona struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Style string `json:"style"`
}

// PostRecord is one post moving through the lifecycle.
// The lifecycle scheduler exclusively owns state transitions.
// ⭐ SSOT: 포스트 레코드 스키마는 여기서만
type PostRecord struct {
	PostID    string
	PersonaID string
	TopicID   string

	AssignedStock *Stock

	State LifecycleState

	ContentTitle string
	ContentBody  string

	PublishedAt    *time.Time
	PlatformPostID string

	RetryCount int
	LastError  string

	Collection  map[Horizon]CollectionStatus
	CollectedAt map[Horizon]*time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPostID derives the deterministic post identifier for a
// (topic, persona) pair. Identical pairs always map to the same ID.
func NewPostID(topicID, personaID string) string {
	return fmt.Sprintf("%s-%s", topicID, personaID)
}

// NewPostRecord creates a record in the initial assigned state with
// every horizon pending.
func NewPostRecord(topicID, personaID string, now time.Time) *PostRecord {
	collection := make(map[Horizon]CollectionStatus, 3)
	for _, h := range AllHorizons() {
		collection[h] = CollectionPending
	}

	return &PostRecord{
		PostID:      NewPostID(topicID, personaID),
		PersonaID:   personaID,
		TopicID:     topicID,
		State:       StateAssigned,
		Collection:  collection,
		CollectedAt: make(map[Horizon]*time.Time, 3),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CollectionStatusFor returns the status for one horizon,
// defaulting to pending when unset.
func (r *PostRecord) CollectionStatusFor(h Horizon) CollectionStatus {
	if r.Collection == nil {
		return CollectionPending
	}
	if s, ok := r.Collection[h]; ok {
		return s
	}
	return CollectionPending
}

// AllHorizonsTerminal reports whether every horizon is done or error
func (r *PostRecord) AllHorizonsTerminal() bool {
	for _, h := range AllHorizons() {
		if !r.CollectionStatusFor(h).Terminal() {
			return false
		}
	}
	return true
}
