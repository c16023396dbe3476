package social

import (
	"errors"
	"fmt"

	"github.com/gofrs/uuid"

	"social/pkg/storage"
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// AuthorizationError reports that the caller has no rights over the entity.
type AuthorizationError struct {
	UserID string
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %q is not allowed to %s", e.UserID, e.Action)
}

// DuplicateFollowError reports a second edge for an existing (follower, following) pair.
type DuplicateFollowError struct {
	Follower  string
	Following string
}

func (e *DuplicateFollowError) Error() string {
	return fmt.Sprintf("user %q already follows %q", e.Follower, e.Following)
}

// StorageError wraps a failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// postErr translates a store error for the post with the given id.
func postErr(op string, id uuid.UUID, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &NotFoundError{Kind: "post", ID: id.String()}
	}
	return &StorageError{Op: op, Err: err}
}
