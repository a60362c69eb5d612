package client

import (
	"net/http"
	"time"

	"livability_backend/internal/cachedfetch"
	"livability_backend/internal/cachestore"
	"livability_backend/platform/logger"
	"livability_backend/platform/observability"

	"github.com/jonboulle/clockwork"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testFetcher[T any](source string) *cachedfetch.Fetcher[T] {
	clock := clockwork.NewRealClock()
	return cachedfetch.New[T](
		cachedfetch.Options{Source: source, TTL: time.Hour},
		cachestore.NewMemory[T](clock, time.Minute),
		cachestore.NewMemory[T](clock, 0),
		clock,
		logger.Discard(),
		observability.NewMetricsForTesting(),
	)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set(headerContentType, contentTypeJSON)
	_, _ = w.Write([]byte(body))
}

func strPtr(s string) *string { return &s }
