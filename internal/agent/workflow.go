package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ccastromar/aicore-agents/internal/llm"
	"github.com/ccastromar/aicore-agents/internal/logx"
	"github.com/ccastromar/aicore-agents/internal/metrics"
)

// Recorder receives the timeline of a run.
type Recorder interface {
	AddEvent(runID, agent, kind, msg, duration string)
}

type nopRecorder struct{}

func (nopRecorder) AddEvent(string, string, string, string, string) {}

type Turn struct {
	Round   int    `json:"round"`
	Agent   string `json:"agent"`
	Content string `json:"content"`
}

type Outcome struct {
	ID             string `json:"id"`
	Request        string `json:"request"`
	Recommendation string `json:"recommendation"`
	Review         string `json:"review"`
	Approved       bool   `json:"approved"`
	Rounds         int    `json:"rounds"`
	Transcript     []Turn `json:"transcript"`
}

// Workflow runs the front desk against the concierge: the front desk
// recommends, the concierge reviews, and the review goes back to the front
// desk until it is approved or MaxRounds is reached.
type Workflow struct {
	FrontDesk *Agent
	Concierge *Agent
	MaxRounds int
	Recorder  Recorder
}

func NewWorkflow(frontDesk, concierge *Agent, maxRounds int, rec Recorder) *Workflow {
	if maxRounds < 1 {
		maxRounds = 1
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Workflow{FrontDesk: frontDesk, Concierge: concierge, MaxRounds: maxRounds, Recorder: rec}
}

// Run executes a run with a fresh id.
func (w *Workflow) Run(ctx context.Context, request string) (*Outcome, error) {
	return w.RunWithID(ctx, uuid.NewString(), request)
}

func (w *Workflow) RunWithID(ctx context.Context, id, request string) (*Outcome, error) {
	out := &Outcome{ID: id, Request: request}
	rec := w.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	rec.AddEvent(id, "Workflow", "request", request, "")
	logx.L(id, "Workflow", "new run")

	frontDesk := []llm.Message{{Role: llm.RoleUser, Content: request}}

	for round := 1; round <= w.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return w.fail(out, err)
		}

		timer := logx.Start(id, w.FrontDesk.Name, "Recommend")
		recommendation, err := w.FrontDesk.Respond(ctx, frontDesk)
		elapsed := timer.End()
		if err != nil {
			return w.fail(out, err)
		}
		out.Recommendation = recommendation
		out.Transcript = append(out.Transcript, Turn{Round: round, Agent: w.FrontDesk.Name, Content: recommendation})
		rec.AddEvent(id, w.FrontDesk.Name, "recommendation", recommendation, elapsed.String())

		timer = logx.Start(id, w.Concierge.Name, "Review")
		review, err := w.Concierge.Respond(ctx, []llm.Message{{Role: llm.RoleUser, Content: reviewPrompt(request, recommendation)}})
		elapsed = timer.End()
		if err != nil {
			return w.fail(out, err)
		}
		out.Review = review
		out.Rounds = round
		out.Transcript = append(out.Transcript, Turn{Round: round, Agent: w.Concierge.Name, Content: review})
		rec.AddEvent(id, w.Concierge.Name, "review", review, elapsed.String())

		if IsApproved(review) {
			out.Approved = true
			break
		}
		frontDesk = append(frontDesk,
			llm.Message{Role: llm.RoleAssistant, Content: recommendation},
			llm.Message{Role: llm.RoleUser, Content: refinePrompt(review)},
		)
	}

	if out.Approved {
		metrics.WorkflowRuns.Inc(map[string]string{"outcome": "approved"})
		rec.AddEvent(id, "Workflow", "approved", fmt.Sprintf("approved after %d round(s)", out.Rounds), "")
	} else {
		metrics.WorkflowRuns.Inc(map[string]string{"outcome": "exhausted"})
		rec.AddEvent(id, "Workflow", "exhausted", fmt.Sprintf("not approved after %d round(s)", out.Rounds), "")
	}
	logx.L(id, "Workflow", "done approved=%v rounds=%d", out.Approved, out.Rounds)
	return out, nil
}

func (w *Workflow) fail(out *Outcome, err error) (*Outcome, error) {
	metrics.WorkflowRuns.Inc(map[string]string{"outcome": "error"})
	if w.Recorder != nil {
		w.Recorder.AddEvent(out.ID, "Workflow", "error", err.Error(), "")
	}
	return out, err
}

func reviewPrompt(request, recommendation string) string {
	return "Traveler request:\n" + request + "\n\nFront desk recommendation:\n" + recommendation
}

func refinePrompt(review string) string {
	return "The concierge reviewed your recommendation:\n" + review + "\n\nRefine your recommendation."
}

var (
	clauseSplit = regexp.MustCompile(`[.;:!?\n]+`)
	wordRe      = regexp.MustCompile(`[a-z']+`)
)

var negations = map[string]bool{
	"no": true, "not": true, "never": true, "yet": true, "nor": true, "hardly": true,
	"cannot": true, "can't": true, "isn't": true, "wasn't": true, "won't": true,
	"couldn't": true, "wouldn't": true, "shouldn't": true,
}

// IsApproved reports whether a concierge review approves the recommendation.
// Every "approved" word must stand without a negation earlier in its clause,
// and must not be answered by a bare "no" / "not yet" right after it.
func IsApproved(review string) bool {
	clauses := clauseSplit.Split(strings.ReplaceAll(strings.ToLower(review), "’", "'"), -1)
	approved := false
	for i, c := range clauses {
		words := wordRe.FindAllString(c, -1)
		for j, w := range words {
			if w != "approved" {
				continue
			}
			if hasNegation(words[:j]) {
				return false
			}
			if i+1 < len(clauses) && isBareNegation(clauses[i+1]) {
				return false
			}
			approved = true
		}
	}
	return approved
}

func hasNegation(words []string) bool {
	for _, w := range words {
		if negations[w] {
			return true
		}
	}
	return false
}

// isBareNegation matches short answers such as "No" or "Not quite".
func isBareNegation(clause string) bool {
	words := wordRe.FindAllString(clause, -1)
	return len(words) > 0 && len(words) <= 2 && negations[words[0]]
}
