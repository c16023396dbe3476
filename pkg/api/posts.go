package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	log "github.com/sirupsen/logrus"
)

func (api *API) createPostHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "createPostHandler"
	sID := shorten(GetRequestID(r.Context()))

	author, ok := requireUser(w, r, sID, handler)
	if !ok {
		return
	}

	var req CreatePostRequest
	var uploadedKey string

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req, uploadedKey, ok = api.parseMultipartPost(w, r, sID)
		if !ok {
			return
		}
	} else {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Debugf("[%s][%s] failed to decode request body: %v", handler, sID, err)
			writeJSON(w, sID, handler, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
			return
		}
	}

	post, err := api.svc.Posts.CreatePost(r.Context(), author, req.Text, req.ImageURL)
	if err != nil {
		if uploadedKey != "" {
			api.removeUpload(uploadedKey, sID)
		}
		writeError(w, sID, handler, err)
		return
	}

	api.metrics.Event("post_created")
	writeJSON(w, sID, handler, http.StatusCreated, post)
	log.Debugf("[%s][%s] post %v created by %s", handler, sID, post.ID, author.UserID)
}

// parseMultipartPost reads the text field and uploads the optional image file.
func (api *API) parseMultipartPost(w http.ResponseWriter, r *http.Request, sID string) (CreatePostRequest, string, bool) {
	const handler = "createPostHandler"

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		log.Debugf("[%s][%s] failed to parse multipart form: %v", handler, sID, err)
		writeJSON(w, sID, handler, http.StatusBadRequest, ErrorResponse{Error: "Invalid multipart form"})
		return CreatePostRequest{}, "", false
	}
	defer r.MultipartForm.RemoveAll()

	req := CreatePostRequest{Text: r.FormValue("text")}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, "", true
	}
	if err != nil {
		log.Debugf("[%s][%s] failed to read image: %v", handler, sID, err)
		writeJSON(w, sID, handler, http.StatusBadRequest, ErrorResponse{Error: "Invalid image file"})
		return CreatePostRequest{}, "", false
	}
	defer file.Close()

	if api.uploader == nil {
		log.Debugf("[%s][%s] image upload requested but no blob store is configured", handler, sID)
		writeJSON(w, sID, handler, http.StatusBadRequest, ErrorResponse{Error: "Image uploads are not supported"})
		return CreatePostRequest{}, "", false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj, err := api.uploader.Upload(r.Context(), header.Filename, contentType, file, header.Size)
	if err != nil {
		log.Errorf("[%s][%s] failed to upload image: %v", handler, sID, err)
		writeJSON(w, sID, handler, http.StatusBadGateway, ErrorResponse{Error: "Failed to store image"})
		return CreatePostRequest{}, "", false
	}
	log.Debugf("[%s][%s] image stored as %s", handler, sID, obj.Key)

	req.ImageURL = obj.URL
	return req, obj.Key, true
}

func (api *API) removeUpload(key, sID string) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := api.uploader.Remove(ctx, key); err != nil {
		log.Warnf("[createPostHandler][%s] failed to remove orphaned image %s: %v", sID, key, err)
	}
}

func (api *API) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "listPostsHandler"
	sID := shorten(GetRequestID(r.Context()))

	user, _ := GetUser(r.Context())
	feed, err := api.svc.Feed.BuildFeed(r.Context(), user.UserID)
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}

	writeJSON(w, sID, handler, http.StatusOK, PostsResponse{Posts: feed})
	log.Debugf("[%s][%s] response sent to: %v", handler, sID, r.RemoteAddr)
}

func (api *API) followingFeedHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "followingFeedHandler"
	sID := shorten(GetRequestID(r.Context()))

	user, ok := requireUser(w, r, sID, handler)
	if !ok {
		return
	}
	userID := user.UserID

	feed, err := api.svc.Feed.BuildFollowingFeed(r.Context(), userID)
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}

	writeJSON(w, sID, handler, http.StatusOK, PostsResponse{Posts: feed})
}

func (api *API) getPostHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "getPostHandler"
	sID := shorten(GetRequestID(r.Context()))

	id, ok := pathID(w, r, sID, handler)
	if !ok {
		return
	}

	post, err := api.svc.Posts.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}

	writeJSON(w, sID, handler, http.StatusOK, post)
}

func (api *API) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "deletePostHandler"
	sID := shorten(GetRequestID(r.Context()))

	user, ok := requireUser(w, r, sID, handler)
	if !ok {
		return
	}
	userID := user.UserID
	id, ok := pathID(w, r, sID, handler)
	if !ok {
		return
	}

	if err := api.svc.Posts.DeletePost(r.Context(), id, userID); err != nil {
		writeError(w, sID, handler, err)
		return
	}

	api.metrics.Event("post_deleted")
	w.WriteHeader(http.StatusNoContent)
	log.Debugf("[%s][%s] post %v deleted by %s", handler, sID, id, userID)
}

func (api *API) likePostHandler(w http.ResponseWriter, r *http.Request) {
	api.toggleLike(w, r, "likePostHandler", true)
}

func (api *API) unlikePostHandler(w http.ResponseWriter, r *http.Request) {
	api.toggleLike(w, r, "unlikePostHandler", false)
}

func (api *API) toggleLike(w http.ResponseWriter, r *http.Request, handler string, like bool) {
	sID := shorten(GetRequestID(r.Context()))

	user, ok := requireUser(w, r, sID, handler)
	if !ok {
		return
	}
	userID := user.UserID
	id, ok := pathID(w, r, sID, handler)
	if !ok {
		return
	}

	var err error
	event := "like"
	if like {
		err = api.svc.Posts.LikePost(r.Context(), id, userID)
	} else {
		event = "unlike"
		err = api.svc.Posts.UnlikePost(r.Context(), id, userID)
	}
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}
	api.metrics.Event(event)

	post, err := api.svc.Posts.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}

	writeJSON(w, sID, handler, http.StatusOK, LikeResponse{
		PostID:        post.ID,
		LikeCount:     len(post.LikedBy),
		LikedByViewer: post.IsLikedBy(userID),
	})
}

func (api *API) likesHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "likesHandler"
	sID := shorten(GetRequestID(r.Context()))

	id, ok := pathID(w, r, sID, handler)
	if !ok {
		return
	}

	likes, err := api.svc.Posts.Likes(r.Context(), id)
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}

	writeJSON(w, sID, handler, http.StatusOK, LikesResponse{Likes: likes})
}

func (api *API) commentsHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "commentsHandler"
	sID := shorten(GetRequestID(r.Context()))

	id, ok := pathID(w, r, sID, handler)
	if !ok {
		return
	}

	comments, err := api.svc.Posts.Comments(r.Context(), id)
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}

	writeJSON(w, sID, handler, http.StatusOK, comments)
}

func (api *API) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "addCommentHandler"
	sID := shorten(GetRequestID(r.Context()))

	author, ok := requireUser(w, r, sID, handler)
	if !ok {
		return
	}
	id, ok := pathID(w, r, sID, handler)
	if !ok {
		return
	}

	var req CommentRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("[%s][%s] failed to decode request body: %v", handler, sID, err)
		writeJSON(w, sID, handler, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	comment, err := api.svc.Posts.AddComment(r.Context(), id, author, req.Text)
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}

	api.metrics.Event("comment_added")
	writeJSON(w, sID, handler, http.StatusCreated, comment)
}

