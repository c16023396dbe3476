package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"social/pkg/blob"
	"social/pkg/models"
	"social/pkg/social"
)

const (
	idPattern    = "{id:[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}}"
	maxImageSize = 10 << 20
	pingTimeout  = 2 * time.Second
)

// Uploader stores post images and returns their durable URL.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (blob.Object, error)
	Remove(ctx context.Context, key string) error
}

// Options carries the optional collaborators of the API. Zero values disable them.
type Options struct {
	Kafka    *kafka.Writer
	Uploader Uploader
	Ping     func(ctx context.Context) error
	Metrics  *Metrics
}

type API struct {
	ServiceName string
	r           *mux.Router
	svc         *social.Service
	kw          *kafka.Writer
	uploader    Uploader
	ping        func(ctx context.Context) error
	metrics     *Metrics
}

func New(name string, svc *social.Service, opts Options) *API {
	api := API{
		ServiceName: name,
		r:           mux.NewRouter(),
		svc:         svc,
		kw:          opts.Kafka,
		uploader:    opts.Uploader,
		ping:        opts.Ping,
		metrics:     opts.Metrics,
	}
	if api.metrics == nil {
		api.metrics = NewMetrics()
	}
	api.endpoints()

	return &api
}

func (api *API) Router() *mux.Router {
	return api.r
}

func (api *API) endpoints() {
	api.r.Use(api.requestIDMiddleware)
	api.r.Use(api.headerMiddleware)
	api.r.Use(api.userMiddleware)
	api.r.Use(api.metricsMiddleware)

	if api.kw != nil {
		api.r.Use(api.loggingMiddleware(api.kw))
	}

	api.r.HandleFunc("/posts", api.createPostHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/posts", api.listPostsHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/posts/"+idPattern, api.getPostHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/posts/"+idPattern, api.deletePostHandler).Methods(http.MethodDelete)
	api.r.HandleFunc("/posts/"+idPattern+"/like", api.likePostHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/posts/"+idPattern+"/like", api.likesHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/posts/"+idPattern+"/unlike", api.unlikePostHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/posts/"+idPattern+"/comments", api.commentsHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/posts/"+idPattern+"/comments", api.addCommentHandler).Methods(http.MethodPost)

	api.r.HandleFunc("/feed", api.followingFeedHandler).Methods(http.MethodGet)

	api.r.HandleFunc("/follows", api.followHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/follows", api.unfollowUserHandler).Methods(http.MethodDelete).Queries("following", "{following}")
	api.r.HandleFunc("/follows/"+idPattern, api.unfollowHandler).Methods(http.MethodDelete)
	api.r.HandleFunc("/users/{id}/followers", api.followersHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/users/{id}/following", api.followingHandler).Methods(http.MethodGet)

	api.r.HandleFunc("/healthz", api.healthHandler).Methods(http.MethodGet)
	api.r.Handle("/metrics", api.metrics.Handler()).Methods(http.MethodGet)
}

func (api *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	if api.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := api.ping(ctx); err != nil {
			log.Errorf("[healthHandler][%s] storage ping failed: %v", sID, err)
			writeJSON(w, sID, "healthHandler", http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}

	writeJSON(w, sID, "healthHandler", http.StatusOK, HealthResponse{Status: "ok"})
}

// requireUser returns the caller or writes 401 when the request is anonymous.
func requireUser(w http.ResponseWriter, r *http.Request, sID, handler string) (models.UserRef, bool) {
	user, ok := GetUser(r.Context())
	if !ok {
		log.Debugf("[%s][%s] request without %s header", handler, sID, HeaderUserID)
		writeJSON(w, sID, handler, http.StatusUnauthorized, ErrorResponse{Error: "Missing " + HeaderUserID + " header"})
		return models.UserRef{}, false
	}
	return user, true
}

func pathID(w http.ResponseWriter, r *http.Request, sID, handler string) (uuid.UUID, bool) {
	id, err := uuid.FromString(mux.Vars(r)["id"])
	if err != nil {
		log.Debugf("[%s][%s] failed to parse ID: %v", handler, sID, err)
		writeJSON(w, sID, handler, http.StatusBadRequest, ErrorResponse{Error: "Invalid UUID parameter"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps core errors to status codes. Unexpected errors are logged
// and hidden from the client.
func writeError(w http.ResponseWriter, sID, handler string, err error) {
	var (
		verr *social.ValidationError
		nerr *social.NotFoundError
		aerr *social.AuthorizationError
		derr *social.DuplicateFollowError
	)

	status, msg := http.StatusInternalServerError, "Internal Server Error"
	switch {
	case errors.As(err, &verr):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.As(err, &nerr):
		status, msg = http.StatusNotFound, err.Error()
	case errors.As(err, &aerr):
		status, msg = http.StatusForbidden, err.Error()
	case errors.As(err, &derr):
		status, msg = http.StatusConflict, err.Error()
	}

	if status == http.StatusInternalServerError {
		log.Errorf("[%s][%s] %v", handler, sID, err)
	} else {
		log.Debugf("[%s][%s] %v", handler, sID, err)
	}

	writeJSON(w, sID, handler, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, sID, handler string, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("[%s][%s] failed to encode response data: %v", handler, sID, err)
	}
}
