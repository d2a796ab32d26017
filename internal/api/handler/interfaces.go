package handler

import (
	"context"

	"github.com/parul297/MeraEvents/internal/application"
	"github.com/parul297/MeraEvents/internal/domain/attendee"
	"github.com/parul297/MeraEvents/internal/domain/event"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error)
	UpdateEvent(ctx context.Context, input application.UpdateEventInput) (*event.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	CountRegistered(ctx context.Context, eventID string) (int, error)
}

// RegistrationServiceInterface は参加登録エンジンのインターフェース
type RegistrationServiceInterface interface {
	Register(ctx context.Context, input application.RegisterInput) (*attendee.Attendee, error)
	UpdateRegistration(ctx context.Context, input application.UpdateRegistrationInput) (*attendee.Attendee, error)
	CancelRegistration(ctx context.Context, attendeeID string) error
	GetAttendee(ctx context.Context, id string) (*attendee.Attendee, error)
	ListAttendees(ctx context.Context, eventID string) ([]*attendee.Attendee, error)
}
