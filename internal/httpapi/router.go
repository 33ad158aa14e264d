// Package httpapi implements the zone management HTTP/JSON API of §6:
// bearer-token-authenticated CRUD routes over /zones/{name}, plus the
// unauthenticated internal routes backing peer replication RPC.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/clusterdns/zoned/internal/metrics"
)

// Server holds the dependencies shared by every route handler.
type Server struct {
	cache Cache
	token string
	log   *logrus.Logger
}

// NewRouter builds the HTTP mux for the zone management API, using Go
// 1.22+ method+pattern routes since no external router appears anywhere
// in the reference corpus this server is grounded on.
func NewRouter(cache Cache, token string, log *logrus.Logger) *http.ServeMux {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{cache: cache, token: token, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /zones/{name}", instrument("GET /zones/{name}", requireAuth(token, s.handleGetZone)))
	mux.HandleFunc("PUT /zones/{name}", instrument("PUT /zones/{name}", requireAuth(token, s.handlePutZone)))
	mux.HandleFunc("POST /zones/{name}", instrument("POST /zones/{name}", requireAuth(token, s.handleCreateZone)))
	mux.HandleFunc("PATCH /zones/{name}", instrument("PATCH /zones/{name}", requireAuth(token, s.handlePatchZone)))
	mux.HandleFunc("DELETE /zones/{name}", instrument("DELETE /zones/{name}", requireAuth(token, s.handleDeleteZone)))

	mux.HandleFunc("POST /internal/apply", instrument("POST /internal/apply", s.handleInternalApply))
	mux.HandleFunc("POST /internal/fetch", instrument("POST /internal/fetch", s.handleInternalFetch))

	return mux
}

// statusRecorder captures the status code written by a handler so
// instrument can label the metric without the handler's cooperation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	}
}
