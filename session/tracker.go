// Package session keeps the per-user quiz state between two chat events.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/korjavin/gmatbot/models"
)

// Backend persists the selected subject so it survives restarts and is
// shared between instances. A nil Backend keeps subjects in memory only.
type Backend interface {
	Subject(ctx context.Context, userID int64) (models.Subject, error)
	SetSubject(ctx context.Context, userID int64, subject models.Subject) error
}

// Active is the question currently served to a user
type Active struct {
	QuestionID string
	Number     int
	IssuedAt   time.Time
}

// Tracker maps users to their selected subject and in-flight question
type Tracker struct {
	mu       sync.Mutex
	backend  Backend
	subjects map[int64]models.Subject
	active   map[int64]Active
}

// NewTracker creates a tracker writing subjects through to backend (may be nil)
func NewTracker(backend Backend) *Tracker {
	return &Tracker{
		backend:  backend,
		subjects: make(map[int64]models.Subject),
		active:   make(map[int64]Active),
	}
}

// SetSubject selects the subject for userID
func (t *Tracker) SetSubject(ctx context.Context, userID int64, subject models.Subject) {
	t.mu.Lock()
	t.subjects[userID] = subject
	t.mu.Unlock()

	if t.backend == nil {
		return
	}
	if err := t.backend.SetSubject(ctx, userID, subject); err != nil {
		log.Printf("Error persisting subject %s for user %d: %v", subject, userID, err)
	}
}

// Subject returns the selected subject, or models.DefaultSubject when unset
func (t *Tracker) Subject(ctx context.Context, userID int64) models.Subject {
	t.mu.Lock()
	subject, ok := t.subjects[userID]
	t.mu.Unlock()
	if ok {
		return subject
	}

	if t.backend != nil {
		stored, err := t.backend.Subject(ctx, userID)
		if err != nil {
			log.Printf("Error loading subject for user %d: %v", userID, err)
		} else if subject, ok := models.ParseSubject(string(stored)); ok {
			t.mu.Lock()
			t.subjects[userID] = subject
			t.mu.Unlock()
			return subject
		} else if stored != "" {
			log.Printf("Ignoring unknown stored subject %q for user %d", stored, userID)
		}
	}
	return models.DefaultSubject
}

// SetActive records the question just served to userID, replacing any previous one
func (t *Tracker) SetActive(userID int64, active Active) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[userID] = active
}

// Active returns the in-flight question for userID, if any
func (t *Tracker) Active(userID int64) (Active, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	active, ok := t.active[userID]
	return active, ok
}

// ClearActive drops the in-flight question if it is questionID
func (t *Tracker) ClearActive(userID int64, questionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if active, ok := t.active[userID]; ok && active.QuestionID == questionID {
		delete(t.active, userID)
	}
}
