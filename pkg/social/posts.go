package social

import (
	"context"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"

	"social/pkg/models"
	"social/pkg/storage"
)

type Posts struct {
	store    storage.PostStore
	comments *Comments
	checker  TextChecker
}

func NewPosts(store storage.PostStore, comments *Comments, checker TextChecker) *Posts {
	return &Posts{store: store, comments: comments, checker: checker}
}

// CreatePost stores a new post with empty comment and like lists. The author
// snapshot is stored by value.
func (p *Posts) CreatePost(ctx context.Context, author models.UserRef, text, imageURL string) (models.Post, error) {
	if err := validateUserID("author", author.UserID); err != nil {
		return models.Post{}, err
	}
	if err := validateText("text", text, p.checker); err != nil {
		return models.Post{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Post{}, err
	}

	ts := now()
	post := models.Post{
		ID:         id,
		Author:     author,
		Text:       text,
		ImageURL:   imageURL,
		CommentIDs: []uuid.UUID{},
		LikedBy:    []string{},
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	if err := p.store.InsertPost(ctx, post); err != nil {
		return models.Post{}, &StorageError{Op: "insert post", Err: err}
	}

	return post, nil
}

func (p *Posts) GetPost(ctx context.Context, id uuid.UUID) (models.Post, error) {
	post, err := p.store.Post(ctx, id)
	if err != nil {
		return models.Post{}, postErr("find post", id, err)
	}
	return post, nil
}

// DeletePost removes the post if requestingUserID is its author, then deletes
// the post's comments.
func (p *Posts) DeletePost(ctx context.Context, id uuid.UUID, requestingUserID string) error {
	post, err := p.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if post.Author.UserID != requestingUserID {
		return &AuthorizationError{UserID: requestingUserID, Action: "delete post " + id.String()}
	}

	if err := p.store.DeletePost(ctx, id); err != nil {
		return postErr("delete post", id, err)
	}

	return p.comments.deleteByPost(ctx, id)
}

// LikePost adds userID to the post's likes. Liking twice is a no-op.
func (p *Posts) LikePost(ctx context.Context, id uuid.UUID, userID string) error {
	if err := validateUserID("userId", userID); err != nil {
		return err
	}
	if err := p.store.AddLike(ctx, id, userID); err != nil {
		return postErr("like post", id, err)
	}
	return nil
}

// UnlikePost removes userID from the post's likes. Unliking a post that was
// not liked is a no-op.
func (p *Posts) UnlikePost(ctx context.Context, id uuid.UUID, userID string) error {
	if err := validateUserID("userId", userID); err != nil {
		return err
	}
	if err := p.store.RemoveLike(ctx, id, userID); err != nil {
		return postErr("unlike post", id, err)
	}
	return nil
}

// Likes returns the ids of the users who like the post.
func (p *Posts) Likes(ctx context.Context, id uuid.UUID) ([]string, error) {
	post, err := p.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return post.LikedBy, nil
}

// AddComment creates a comment and appends its id to the post.
//
// The append is a single-document update and is the commit point: readers
// resolve comments only through the post's comment list, so the comment is not
// visible before it. If the append fails, the provisional comment is deleted
// and the append error is returned.
func (p *Posts) AddComment(ctx context.Context, postID uuid.UUID, author models.UserRef, text string) (models.Comment, error) {
	if _, err := p.GetPost(ctx, postID); err != nil {
		return models.Comment{}, err
	}

	comment, err := p.comments.CreateComment(ctx, postID, author, text)
	if err != nil {
		return models.Comment{}, err
	}

	if err := p.store.AppendComment(ctx, postID, comment.ID); err != nil {
		if derr := p.comments.discard(ctx, comment.ID); derr != nil {
			log.Warnf("[AddComment] failed to discard provisional comment %v of post %v: %v", comment.ID, postID, derr)
		}
		return models.Comment{}, postErr("append comment", postID, err)
	}

	return comment, nil
}

// Comments returns the post's comments, newest first.
func (p *Posts) Comments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	post, err := p.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return p.comments.CommentsByIDs(ctx, post.CommentIDs)
}

// ListAllPosts returns every post, newest first, with resolved comments.
// It is the feed seen by an anonymous viewer.
func (p *Posts) ListAllPosts(ctx context.Context) ([]models.FeedPost, error) {
	posts, err := p.store.Posts(ctx)
	if err != nil {
		return nil, &StorageError{Op: "find posts", Err: err}
	}
	return compose(ctx, p.comments, posts, "")
}
