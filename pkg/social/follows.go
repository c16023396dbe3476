package social

import (
	"context"
	"errors"

	"github.com/gofrs/uuid"

	"social/pkg/models"
	"social/pkg/storage"
)

type Follows struct {
	store storage.FollowStore
}

func NewFollows(store storage.FollowStore) *Follows {
	return &Follows{store: store}
}

// Follow creates the edge followerID -> followingID. A user may follow themselves.
func (f *Follows) Follow(ctx context.Context, followerID, followingID string) (models.Follow, error) {
	if err := validateUserID("follower", followerID); err != nil {
		return models.Follow{}, err
	}
	if err := validateUserID("following", followingID); err != nil {
		return models.Follow{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Follow{}, err
	}

	follow := models.Follow{
		ID:        id,
		Follower:  followerID,
		Following: followingID,
		CreatedAt: now(),
	}
	err = f.store.InsertFollow(ctx, follow)
	if errors.Is(err, storage.ErrDuplicate) {
		return models.Follow{}, &DuplicateFollowError{Follower: followerID, Following: followingID}
	}
	if err != nil {
		return models.Follow{}, &StorageError{Op: "insert follow", Err: err}
	}

	return follow, nil
}

// Unfollow deletes the edge with the given id. Only the follower may delete
// an edge. Deleting an edge that does not exist succeeds.
func (f *Follows) Unfollow(ctx context.Context, edgeID uuid.UUID, requesterID string) error {
	follow, err := f.store.Follow(ctx, edgeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &StorageError{Op: "find follow", Err: err}
	}

	if follow.Follower != requesterID {
		return &AuthorizationError{UserID: requesterID, Action: "delete follow " + edgeID.String()}
	}

	if err := f.store.DeleteFollow(ctx, edgeID); err != nil {
		return &StorageError{Op: "delete follow", Err: err}
	}
	return nil
}

// UnfollowUser deletes the edge followerID -> followingID if present.
func (f *Follows) UnfollowUser(ctx context.Context, followerID, followingID string) error {
	if err := validateUserID("follower", followerID); err != nil {
		return err
	}
	if err := f.store.DeleteFollowPair(ctx, followerID, followingID); err != nil {
		return &StorageError{Op: "delete follow", Err: err}
	}
	return nil
}

// ListFollowers returns the edges pointing at userID, newest first.
func (f *Follows) ListFollowers(ctx context.Context, userID string) ([]models.Follow, error) {
	follows, err := f.store.Followers(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "find followers", Err: err}
	}
	return follows, nil
}

// ListFollowing returns the edges starting at userID, newest first.
func (f *Follows) ListFollowing(ctx context.Context, userID string) ([]models.Follow, error) {
	follows, err := f.store.Following(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "find following", Err: err}
	}
	return follows, nil
}
