package social

import (
	"context"

	"github.com/gofrs/uuid"

	"social/pkg/models"
	"social/pkg/storage"
)

type Comments struct {
	store   storage.CommentStore
	checker TextChecker
}

func NewComments(store storage.CommentStore, checker TextChecker) *Comments {
	return &Comments{store: store, checker: checker}
}

// CreateComment stores a new comment for postID. It does not reference the
// comment from the post; until Posts.AddComment appends it, the comment is
// provisional and invisible to readers.
func (c *Comments) CreateComment(ctx context.Context, postID uuid.UUID, author models.UserRef, text string) (models.Comment, error) {
	if postID == uuid.Nil {
		return models.Comment{}, &ValidationError{Field: "postId", Reason: "must be provided"}
	}
	if err := validateUserID("author", author.UserID); err != nil {
		return models.Comment{}, err
	}
	if err := validateText("text", text, c.checker); err != nil {
		return models.Comment{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Comment{}, err
	}

	ts := now()
	comment := models.Comment{
		ID:        id,
		PostID:    postID,
		Author:    author,
		Text:      text,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := c.store.InsertComment(ctx, comment); err != nil {
		return models.Comment{}, &StorageError{Op: "insert comment", Err: err}
	}

	return comment, nil
}

// CommentsByIDs resolves comment references, newest first. Unknown ids are skipped.
func (c *Comments) CommentsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Comment, error) {
	comments, err := c.store.CommentsByIDs(ctx, ids)
	if err != nil {
		return nil, &StorageError{Op: "find comments", Err: err}
	}
	return comments, nil
}

func (c *Comments) discard(ctx context.Context, id uuid.UUID) error {
	return c.store.DeleteComment(ctx, id)
}

func (c *Comments) deleteByPost(ctx context.Context, postID uuid.UUID) error {
	if err := c.store.DeleteCommentsByPost(ctx, postID); err != nil {
		return &StorageError{Op: "delete post comments", Err: err}
	}
	return nil
}
