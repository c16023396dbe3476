package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func (api *API) followHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "followHandler"
	sID := shorten(GetRequestID(r.Context()))

	user, ok := requireUser(w, r, sID, handler)
	if !ok {
		return
	}

	var req FollowRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("[%s][%s] failed to decode request body: %v", handler, sID, err)
		writeJSON(w, sID, handler, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	follow, err := api.svc.Follows.Follow(r.Context(), user.UserID, req.Following)
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}

	api.metrics.Event("follow")
	writeJSON(w, sID, handler, http.StatusCreated, follow)
	log.Debugf("[%s][%s] %s now follows %s", handler, sID, follow.Follower, follow.Following)
}

func (api *API) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "unfollowHandler"
	sID := shorten(GetRequestID(r.Context()))

	user, ok := requireUser(w, r, sID, handler)
	if !ok {
		return
	}
	id, ok := pathID(w, r, sID, handler)
	if !ok {
		return
	}

	if err := api.svc.Follows.Unfollow(r.Context(), id, user.UserID); err != nil {
		writeError(w, sID, handler, err)
		return
	}

	api.metrics.Event("unfollow")
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) unfollowUserHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "unfollowUserHandler"
	sID := shorten(GetRequestID(r.Context()))

	user, ok := requireUser(w, r, sID, handler)
	if !ok {
		return
	}

	if err := api.svc.Follows.UnfollowUser(r.Context(), user.UserID, mux.Vars(r)["following"]); err != nil {
		writeError(w, sID, handler, err)
		return
	}

	api.metrics.Event("unfollow")
	w.WriteHeader(http.StatusNoContent)
}

func (api *API) followersHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "followersHandler"
	sID := shorten(GetRequestID(r.Context()))

	follows, err := api.svc.Follows.ListFollowers(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}

	writeJSON(w, sID, handler, http.StatusOK, follows)
}

func (api *API) followingHandler(w http.ResponseWriter, r *http.Request) {
	const handler = "followingHandler"
	sID := shorten(GetRequestID(r.Context()))

	follows, err := api.svc.Follows.ListFollowing(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, sID, handler, err)
		return
	}

	writeJSON(w, sID, handler, http.StatusOK, follows)
}
