package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handlers struct {
	deps   *Dependencies
	logger *zap.SugaredLogger
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies, logger *zap.SugaredLogger) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: logger.Named("API"),
	}
}

// pathID reads a positive integer URL parameter
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads an integer query parameter, returning def when absent or invalid
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
