package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"social/pkg/logger"
	"social/pkg/models"
)

type (
	ctxKeyRequestID struct{}
	ctxKeyUser      struct{}
)

var (
	RequestIDKey = ctxKeyRequestID{}
	UserKey      = ctxKeyUser{}
)

// Identity headers set by the authenticating gateway.
const (
	HeaderUserID        = "X-User-Id"
	HeaderUserFirstName = "X-User-First-Name"
	HeaderUserLastName  = "X-User-Last-Name"
	HeaderUserImageURL  = "X-User-Image-Url"
)

func (api *API) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			id, err := uuid.NewV4()
			if err != nil {
				log.Errorf("[requestIDMiddleware] failed to generate request ID for %v: %v", r.RemoteAddr, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			reqID = id.String()
			log.Debugf("[requestIDMiddleware] generated request ID:%s for %v", reqID, r.RemoteAddr)
		}

		w.Header().Set("X-Request-Id", reqID)
		ctx := context.WithValue(r.Context(), RequestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (api *API) headerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// userMiddleware puts the caller's identity from the gateway headers into the
// request context. Requests without X-User-Id are anonymous.
func (api *API) userMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		user := models.UserRef{
			UserID:    userID,
			FirstName: r.Header.Get(HeaderUserFirstName),
			LastName:  r.Header.Get(HeaderUserLastName),
			ImageURL:  r.Header.Get(HeaderUserImageURL),
		}
		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (api *API) loggingMiddleware(kWriter *kafka.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := logger.New(w)
			defer func() {
				user, _ := GetUser(r.Context())
				entry := logger.Entry{
					Timestamp:  time.Now(),
					IP:         getClientIP(r),
					StatusCode: lw.Status(),
					RequestID:  GetRequestID(r.Context()),
					UserID:     user.UserID,
					Method:     r.Method,
					Path:       r.URL.Path,
					Bytes:      lw.Size(),
					Duration:   time.Since(start).Seconds(),
					Service:    api.ServiceName,
				}

				go func() {
					jsonEntry, err := json.Marshal(entry)
					if err != nil {
						log.Errorf("[loggingMiddleware] failed to marshal log entry for request %s", entry.RequestID)
						return
					}
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					err = kWriter.WriteMessages(ctx, kafka.Message{Key: []byte(entry.RequestID), Value: jsonEntry})
					if err != nil {
						log.Errorf("[loggingMiddleware] failed to write log to Kafka: %v", err)
						return
					}
					log.Debugf("[loggingMiddleware] log entry sent to Kafka request_id:%s", entry.RequestID)
				}()
			}()

			next.ServeHTTP(lw, r)
		})
	}
}

// GetRequestID extracts the request ID from the context.
// It returns the request ID as a string if present, otherwise returns an empty string.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// GetUser returns the authenticated caller, if any.
func GetUser(ctx context.Context) (models.UserRef, bool) {
	user, ok := ctx.Value(UserKey).(models.UserRef)
	return user, ok
}

func getClientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}

	return ip
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
