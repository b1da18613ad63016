// Package audit records the administrative operations routed through the
// portal: who was targeted, in which realm, which operation ran and how it
// ended. Events are append-only and queried by target email.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Outcome of a recorded operation
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event is one recorded administrative operation
type Event struct {
	ID        uuid.UUID `json:"id"`
	At        time.Time `json:"at"`
	Email     string    `json:"email"`
	Realm     string    `json:"realm"`
	Operation string    `json:"operation"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

// Service records audit events through a repository. Recording is best-effort:
// a repository failure is logged and never fails the audited operation.
type Service struct {
	repository Repository
}

// NewService creates an audit service backed by the given repository
func NewService(repository Repository) *Service {
	return &Service{repository: repository}
}

// Record stores one audit event, assigning its id and timestamp
func (s *Service) Record(ctx context.Context, email, realmName, operation, outcome, detail string) {
	event := Event{
		ID:        uuid.New(),
		At:        time.Now().UTC(),
		Email:     email,
		Realm:     realmName,
		Operation: operation,
		Outcome:   outcome,
		Detail:    detail,
	}

	if err := s.repository.Append(ctx, event); err != nil {
		slog.Error("Failed to append audit event", "email", email, "operation", operation, "err", err)
	}
}

// FindByEmail returns the recorded events for one target email, newest first
func (s *Service) FindByEmail(ctx context.Context, email string) ([]Event, error) {
	return s.repository.FindByEmail(ctx, email)
}
