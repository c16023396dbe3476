// Package social implements posts, comments, likes and follows on top of a
// storage.Storage, and composes them into viewer-specific feeds.
package social

import (
	"strings"
	"time"

	"social/pkg/storage"
)

// TextChecker reports whether text must be rejected.
type TextChecker interface {
	Check(text string) bool
}

type Service struct {
	Posts    *Posts
	Comments *Comments
	Follows  *Follows
	Feed     *Feed
}

// New wires the repositories over a single store. checker may be nil.
func New(db storage.Storage, checker TextChecker) *Service {
	comments := NewComments(db, checker)
	return &Service{
		Posts:    NewPosts(db, comments, checker),
		Comments: comments,
		Follows:  NewFollows(db),
		Feed:     NewFeed(db, comments, db),
	}
}

// now is the clock used for createdAt/updatedAt stamps. Mongo keeps
// millisecond precision, so the stamps are truncated to match.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func validateText(field, text string, checker TextChecker) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if checker != nil && checker.Check(text) {
		return &ValidationError{Field: field, Reason: "contains banned words"}
	}
	return nil
}

func validateUserID(field, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return &ValidationError{Field: field, Reason: "user id is required"}
	}
	return nil
}
