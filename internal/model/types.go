package model

import "time"

// EntityKind identifies one of the shared reference-entity pools.
type EntityKind string

const (
	KindTag     EntityKind = "tag"
	KindPerson  EntityKind = "person"
	KindProject EntityKind = "project"
	KindEmotion EntityKind = "emotion"
	KindPlace   EntityKind = "place"
)

// EntityKinds lists all reference-entity kinds in canonical order.
var EntityKinds = []EntityKind{KindTag, KindPerson, KindProject, KindEmotion, KindPlace}

// RefEntity is a canonical, deduplicated reference entity (tag, person,
// project, emotion or place). DisplayName tracks the latest raw input that
// upserted the entity; ComparisonKey is the normalized uniqueness key.
// At most one active entity exists per (Kind, ComparisonKey).
type RefEntity struct {
	ID            string     `json:"id"`
	Kind          EntityKind `json:"kind"`
	DisplayName   string     `json:"displayName"`
	ComparisonKey string     `json:"comparisonKey"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Deleted       bool       `json:"deleted"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
}

// Active reports whether the entity has not been soft-deleted.
func (e *RefEntity) Active() bool { return !e.Deleted }

// UnlockLog records one "talked about it" event. It is exclusively owned by
// its episode; soft-deleting the episode cascades to its logs.
type UnlockLog struct {
	ID            string     `json:"id"`
	EpisodeID     string     `json:"episodeId"`
	TalkedAt      time.Time  `json:"talkedAt"`
	MediaPublicAt *time.Time `json:"mediaPublicAt,omitempty"`
	MediaType     string     `json:"mediaType,omitempty"`
	ProjectName   string     `json:"projectName,omitempty"`
	Reaction      string     `json:"reaction,omitempty"`
	Memo          string     `json:"memo,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Deleted       bool       `json:"deleted"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
}

// Active reports whether the log has not been soft-deleted.
func (l *UnlockLog) Active() bool { return !l.Deleted }

// Episode is the aggregate root: one recorded event plus non-owning
// references into the shared entity pools and its owned unlock logs.
// Entity slices hold snapshot copies loaded by the store.
type Episode struct {
	ID         string      `json:"id"`
	Date       time.Time   `json:"date"`
	Title      string      `json:"title"`
	Body       string      `json:"body,omitempty"`
	UnlockAt   *time.Time  `json:"unlockAt,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	Deleted    bool        `json:"deleted"`
	DeletedAt  *time.Time  `json:"deletedAt,omitempty"`
	Tags       []RefEntity `json:"tags"`
	Persons    []RefEntity `json:"persons"`
	Projects   []RefEntity `json:"projects"`
	Emotions   []RefEntity `json:"emotions"`
	Places     []RefEntity `json:"places"`
	UnlockLogs []UnlockLog `json:"unlockLogs"`
}

// Active reports whether the episode has not been soft-deleted.
func (e *Episode) Active() bool { return !e.Deleted }

// Unlocked reports whether the episode's unlock date has passed. Episodes
// without an unlock date are never unlocked.
func (e *Episode) Unlocked(now time.Time) bool {
	return e.UnlockAt != nil && !e.UnlockAt.After(now)
}

// Entities returns the episode's references of one kind.
func (e *Episode) Entities(kind EntityKind) []RefEntity {
	switch kind {
	case KindTag:
		return e.Tags
	case KindPerson:
		return e.Persons
	case KindProject:
		return e.Projects
	case KindEmotion:
		return e.Emotions
	case KindPlace:
		return e.Places
	}
	return nil
}

// SetEntities replaces the episode's references of one kind.
func (e *Episode) SetEntities(kind EntityKind, ents []RefEntity) {
	switch kind {
	case KindTag:
		e.Tags = ents
	case KindPerson:
		e.Persons = ents
	case KindProject:
		e.Projects = ents
	case KindEmotion:
		e.Emotions = ents
	case KindPlace:
		e.Places = ents
	}
}

// ActiveLogCount returns the number of non-deleted unlock logs.
func (e *Episode) ActiveLogCount() int {
	n := 0
	for i := range e.UnlockLogs {
		if e.UnlockLogs[i].Active() {
			n++
		}
	}
	return n
}

// Suggestion is one entry of the autocomplete usage ledger. It is
// independent of the reference-entity pools: it tracks history of use per
// searchable field, including free-text fields that never become entities.
type Suggestion struct {
	ID         string    `json:"id"`
	Field      string    `json:"field"`
	Value      string    `json:"value"`
	UsageCount int       `json:"usageCount"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	Deleted    bool      `json:"deleted"`
}

// StatusFilter selects episodes by unlock state during search.
type StatusFilter string

const (
	StatusAll    StatusFilter = "all"
	StatusOK     StatusFilter = "ok"     // unlocked only
	StatusLocked StatusFilter = "locked" // not yet unlocked
)
