package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotency-Replayed"

	maxIdempotencyKeyLen = 255
	maxIdempotencyBody   = 1 << 20 // 1 MB
)

// Record states. A key is reserved before the handler runs so concurrent
// retries with the same key cannot both execute.
const (
	stateInFlight = "in_flight"
	stateDone     = "done"
)

// storedResponse is the KV record behind one idempotency key. Method and
// path pin the key to the request that first used it.
type storedResponse struct {
	State      string              `json:"state"`
	Method     string              `json:"method"`
	Path       string              `json:"path"`
	StoredAt   time.Time           `json:"stored_at"`
	StatusCode int                 `json:"status_code,omitempty"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Body       []byte              `json:"body,omitempty"`
}

// Idempotency deduplicates mutating requests through the Idempotency-Key
// header, backed by a JetStream KV bucket. A source system that retries a
// decision submission with the same key gets the original response back,
// marked with Idempotency-Replayed, instead of creating a duplicate record.
// The key is reserved before the handler runs, so a concurrent retry gets
// 409 while the first attempt is still executing, and reusing a key on a
// different endpoint is rejected with 422.
//
// Keys are capped at 255 characters and limited to the charset JetStream
// accepts, so a client cannot pick a key the bucket would refuse.
//
// Auth endpoints are never deduplicated: a replayed login response would
// hand one caller another caller's token if they picked the same key.
//
// The KV bucket carries the TTL, so abandoned reservations and old replays
// age out on their own.
func Idempotency(kv jetstream.KeyValue) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only apply to mutating methods
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if strings.Contains(r.URL.Path, "/auth/") {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(headerIdempotencyKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !validKey(key) {
				http.Error(w, `{"error":"invalid idempotency key"}`, http.StatusBadRequest)
				return
			}

			if entry, err := kv.Get(r.Context(), key); err == nil {
				var rec storedResponse
				if err := json.Unmarshal(entry.Value(), &rec); err != nil {
					slog.Warn("idempotency: corrupt record, re-executing", "key", key)
					runAndStore(w, r, next, kv, key, entry.Revision())
					return
				}
				switch {
				case rec.State == stateInFlight:
					http.Error(w, `{"error":"request with this idempotency key is still in flight"}`, http.StatusConflict)
				case rec.Method != r.Method || rec.Path != r.URL.Path:
					http.Error(w, `{"error":"idempotency key was already used for a different request"}`, http.StatusUnprocessableEntity)
				default:
					writeReplay(w, rec)
				}
				return
			}

			// First sight of this key: reserve it before running the handler.
			reservation, _ := json.Marshal(storedResponse{
				State:    stateInFlight,
				Method:   r.Method,
				Path:     r.URL.Path,
				StoredAt: time.Now().UTC(),
			})
			rev, err := kv.Create(r.Context(), key, reservation)
			if errors.Is(err, jetstream.ErrKeyExists) {
				// Lost the race against a concurrent retry.
				http.Error(w, `{"error":"request with this idempotency key is still in flight"}`, http.StatusConflict)
				return
			}
			if err != nil {
				// KV outage: run the request without dedup rather than fail it.
				slog.Warn("idempotency: reserve failed, skipping dedup", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			runAndStore(w, r, next, kv, key, rev)
		})
	}
}

// validKey bounds the client-supplied key and restricts it to the charset
// JetStream accepts for KV keys.
func validKey(key string) bool {
	if key == "" || len(key) > maxIdempotencyKeyLen {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == '=', r == '/':
		default:
			return false
		}
	}
	return true
}

// runAndStore executes the request and finalizes the key's record at the
// given revision.
func runAndStore(w http.ResponseWriter, r *http.Request, next http.Handler, kv jetstream.KeyValue, key string, rev uint64) {
	rec := &responseRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
	}
	next.ServeHTTP(rec, r)

	if rec.body.Len() > maxIdempotencyBody {
		// Too large to replay. Drop the reservation so a retry re-executes.
		if err := kv.Delete(r.Context(), key); err != nil {
			slog.Warn("idempotency: drop oversized record", "key", key, "error", err)
		}
		return
	}

	data, err := json.Marshal(storedResponse{
		State:      stateDone,
		Method:     r.Method,
		Path:       r.URL.Path,
		StoredAt:   time.Now().UTC(),
		StatusCode: rec.statusCode,
		Headers:    w.Header().Clone(),
		Body:       rec.body.Bytes(),
	})
	if err != nil {
		return
	}
	if _, err := kv.Update(r.Context(), key, data, rev); err != nil {
		slog.Warn("idempotency: failed to store response", "key", key, "error", err)
	}
}

// writeReplay sends a previously recorded response.
func writeReplay(w http.ResponseWriter, rec storedResponse) {
	for k, vals := range rec.Headers {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set(headerReplayed, "true")
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(rec.Body)
}

// responseRecorder wraps http.ResponseWriter to capture the response.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
