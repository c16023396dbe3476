package api

import (
	"github.com/gofrs/uuid"

	"social/pkg/models"
)

type CreatePostRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type CommentRequest struct {
	Text string `json:"text"`
}

type FollowRequest struct {
	Following string `json:"following"`
}

type PostsResponse struct {
	Posts []models.FeedPost `json:"posts"`
}

type LikesResponse struct {
	Likes []string `json:"likes"`
}

// LikeResponse summarises the like state of a post after a like or unlike.
type LikeResponse struct {
	PostID        uuid.UUID `json:"postId"`
	LikeCount     int       `json:"likeCount"`
	LikedByViewer bool      `json:"likedByViewer"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
