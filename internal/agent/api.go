package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ccastromar/aicore-agents/internal/guard"
	"github.com/ccastromar/aicore-agents/internal/logx"
)

// Max request size for POST /workflow/run (64KB)
const maxRunBodyBytes int64 = 64 << 10

// RunTimeout bounds a run started over HTTP.
const RunTimeout = 2 * time.Minute

var idRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// WorkflowAPI exposes the review workflow over HTTP. Runs are asynchronous:
// POST starts one and returns its id, GET polls for the result.
type WorkflowAPI struct {
	workflow *Workflow
	results  *ResultStore
	runs     *runContexts
	base     context.Context

	apiKey string
	rl     *rateLimiter

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorkflowAPI builds the API. An empty apiKey disables authentication.
func NewWorkflowAPI(base context.Context, wf *Workflow, apiKey string) *WorkflowAPI {
	if base == nil {
		base = context.Background()
	}
	return &WorkflowAPI{
		workflow: wf,
		results:  NewResultStore(),
		runs:     newRunContexts(),
		base:     base,
		apiKey:   strings.TrimSpace(apiKey),
		rl:       newRateLimiter(time.Minute, 30),
	}
}

// RegisterHTTP registra endpoints HTTP
func (a *WorkflowAPI) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/workflow/run", a.handleRun)
	mux.HandleFunc("/workflow/result", a.handleResult)
}

// Wait stops accepting runs and blocks until every in-flight run has finished.
func (a *WorkflowAPI) Wait() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.wg.Wait()
}

// track registers a run with the wait group unless the API is closed.
func (a *WorkflowAPI) track() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.wg.Add(1)
	return true
}

func (a *WorkflowAPI) handleRun(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.startRun(w, r)
	case http.MethodDelete:
		a.cancelRun(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *WorkflowAPI) startRun(w http.ResponseWriter, r *http.Request) {
	if !a.admit(w, r) {
		return
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRunBodyBytes)
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		http.Error(w, "invalid request body", code)
		return
	}
	msg, err := guard.CleanRequest(req.Message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !a.track() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	id := uuid.NewString()
	logx.Info("HTTP", "new run id=%s", id)
	a.results.Store(id, Result{Status: StatusPending})

	ctx := a.runs.start(a.base, id, RunTimeout)
	go func() {
		defer a.wg.Done()
		defer a.runs.stop(id)
		out, err := a.workflow.RunWithID(ctx, id, msg)
		switch {
		case errors.Is(err, context.Canceled):
			a.results.Store(id, Result{Status: StatusCancelled, Outcome: out, Err: err.Error()})
		case err != nil:
			a.results.Store(id, Result{Status: StatusError, Outcome: out, Err: err.Error()})
		default:
			a.results.Store(id, Result{Status: StatusDone, Outcome: out})
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "status": "accepted"})
}

// cancelRun handles DELETE /workflow/run?id=...
func (a *WorkflowAPI) cancelRun(w http.ResponseWriter, r *http.Request) {
	if !a.admit(w, r) {
		return
	}
	id, ok := runID(w, r)
	if !ok {
		return
	}
	if !a.runs.stop(id) {
		http.Error(w, "run not in flight", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "cancelling"})
}

// handleResult devuelve el estado de un run. GET /workflow/result?id=...
func (a *WorkflowAPI) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !a.admit(w, r) {
		return
	}
	id, ok := runID(w, r)
	if !ok {
		return
	}
	res, found := a.results.Get(id)
	if !found {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if res.Status != StatusPending {
		a.results.Delete(id)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"status":  res.Status,
		"outcome": res.Outcome,
		"error":   res.Err,
	})
}

func runID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("id")
	if !idRe.MatchString(id) {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// admit applies the optional API key and the per-client rate limit.
func (a *WorkflowAPI) admit(w http.ResponseWriter, r *http.Request) bool {
	if !a.checkAuth(r) {
		w.Header().Set("WWW-Authenticate", "Bearer, X-API-Key")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	if err := a.rl.acquire(clientKey(r)); err != nil {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return false
	}
	return true
}

// checkAuth enforces the API key when one is configured.
func (a *WorkflowAPI) checkAuth(r *http.Request) bool {
	if a.apiKey == "" {
		return true
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k == a.apiKey
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:]) == a.apiKey
	}
	return false
}

// clientKey picks an identifier for rate limiting: API key if present, else IP.
func clientKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return "key:" + k
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return "key:" + strings.TrimSpace(auth[7:])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return "ip:" + host
}

// fixed-window rate limiter per client key
type rateLimiter struct {
	window time.Duration
	limit  int

	mu      sync.Mutex
	buckets map[string]*rateBucket
}

type rateBucket struct {
	start time.Time
	hits  int
}

func newRateLimiter(window time.Duration, limit int) *rateLimiter {
	return &rateLimiter{window: window, limit: limit, buckets: make(map[string]*rateBucket)}
}

func (rl *rateLimiter) acquire(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.start) >= rl.window {
		rl.buckets[key] = &rateBucket{start: now, hits: 1}
		return nil
	}
	if b.hits >= rl.limit {
		return errors.New("rate limit exceeded")
	}
	b.hits++
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
