// Package admin records moderation actions taken by platform administrators.
package admin

import (
	"context"
	"time"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ActionType identifies an administrative action
type ActionType string

const (
	ActionUserBlocked ActionType = "user_blocked"
)

// TargetType names the kind of entity an action applies to
type TargetType string

const (
	TargetUser TargetType = "user"
)

// Action is an append-only audit record of an administrator's decision
type Action struct {
	ID          uuid.UUID
	AdminID     uuid.UUID
	ActionType  ActionType
	TargetType  TargetType
	TargetID    uuid.UUID
	Description string
	CreatedAt   time.Time
}

// NewAction creates an audit record
func NewAction(adminID uuid.UUID, action ActionType, target TargetType, targetID uuid.UUID, description string, now time.Time) *Action {
	return &Action{
		ID:          uuid.New(),
		AdminID:     adminID,
		ActionType:  action,
		TargetType:  target,
		TargetID:    targetID,
		Description: description,
		CreatedAt:   now,
	}
}

// ActionRepository persists the admin audit log
type ActionRepository interface {
	Create(ctx context.Context, action *Action) error
	// List returns actions newest first
	List(ctx context.Context, page shared.Pagination) ([]Action, int64, error)
}

// ErrUserNotFound is returned when a user owns neither a seller nor a channel account
var ErrUserNotFound = shared.NewDomainError(shared.CodeNotFound, "User has no seller or channel account")

// ErrUserAlreadyBlocked is returned when every account of the user is already inactive
var ErrUserAlreadyBlocked = shared.NewDomainError(shared.CodeInvalidStateTransition, "User is already blocked")
