package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Small in-process registry exported in Prometheus text format. Counters and
// count/sum summaries only, keyed by a canonical label string.

type labelsKey string

func makeKey(lbls map[string]string) labelsKey {
	if len(lbls) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lbls))
	for k := range lbls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", k, lbls[k])
	}
	return labelsKey(b.String())
}

type collector interface {
	write(w io.Writer)
}

type CounterVec struct {
	Name string
	Help string

	mu     sync.RWMutex
	values map[labelsKey]float64
}

func (cv *CounterVec) Inc(lbls map[string]string) {
	key := makeKey(lbls)
	cv.mu.Lock()
	cv.values[key]++
	cv.mu.Unlock()
}

// Value returns the current count for the label set.
func (cv *CounterVec) Value(lbls map[string]string) float64 {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	return cv.values[makeKey(lbls)]
}

func (cv *CounterVec) write(w io.Writer) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", cv.Name, cv.Help, cv.Name)
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	for _, key := range sortedKeys(cv.values) {
		fmt.Fprintf(w, "%s%s %g\n", cv.Name, braces(key), cv.values[key])
	}
}

// SummaryVec exports name_sum and name_count.
type SummaryVec struct {
	Name string
	Help string

	mu    sync.RWMutex
	count map[labelsKey]float64
	sum   map[labelsKey]float64
}

func (sv *SummaryVec) Observe(lbls map[string]string, v float64) {
	key := makeKey(lbls)
	sv.mu.Lock()
	sv.count[key]++
	sv.sum[key] += v
	sv.mu.Unlock()
}

func (sv *SummaryVec) write(w io.Writer) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s summary\n", sv.Name, sv.Help, sv.Name)
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	for _, key := range sortedKeys(sv.count) {
		fmt.Fprintf(w, "%s_sum%s %g\n", sv.Name, braces(key), sv.sum[key])
		fmt.Fprintf(w, "%s_count%s %g\n", sv.Name, braces(key), sv.count[key])
	}
}

func sortedKeys(m map[labelsKey]float64) []labelsKey {
	keys := make([]labelsKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func braces(key labelsKey) string {
	if key == "" {
		return ""
	}
	return "{" + string(key) + "}"
}

var (
	registryMu sync.Mutex
	registry   []collector
)

func NewCounterVec(name, help string) *CounterVec {
	cv := &CounterVec{Name: name, Help: help, values: make(map[labelsKey]float64)}
	register(cv)
	return cv
}

func NewSummaryVec(name, help string) *SummaryVec {
	sv := &SummaryVec{Name: name, Help: help, count: make(map[labelsKey]float64), sum: make(map[labelsKey]float64)}
	register(sv)
	return sv
}

func register(c collector) {
	registryMu.Lock()
	registry = append(registry, c)
	registryMu.Unlock()
}

var (
	HTTPRequests = NewCounterVec("aicore_http_requests_total", "HTTP requests by method, path and status")
	HTTPDuration = NewSummaryVec("aicore_http_request_seconds", "HTTP request duration seconds")

	Resolutions   = NewCounterVec("aicore_resolutions_total", "Deployment resolutions by outcome")                 // ok|invalid|error|not_found|missing_url|name_required
	TokenRequests = NewCounterVec("aicore_token_requests_total", "Token requests to the AI Core auth server by outcome") // ok|error

	LLMChats   = NewCounterVec("aicore_llm_chats_total", "LLM chat calls by agent and outcome")
	LLMChatDur = NewSummaryVec("aicore_llm_chat_seconds", "LLM chat duration seconds")

	WorkflowRuns = NewCounterVec("aicore_workflow_runs_total", "Review workflow runs by outcome") // approved|exhausted|error
)

// ServeHTTP writes every registered metric.
func ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	registryMu.Lock()
	cs := append([]collector(nil), registry...)
	registryMu.Unlock()
	for _, c := range cs {
		c.write(w)
	}
}
