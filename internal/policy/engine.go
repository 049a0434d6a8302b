// Package policy decides interrupts automatically using an OPA policy.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/open-policy-agent/opa/rego"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// Decisions returned by the policy.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
	DecisionAsk     = "ask"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.interrupt_policy.decision"),
		rego.Module("interrupt_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// LoadEngine reads a policy file and prepares it.
func LoadEngine(ctx context.Context, path string) (*Engine, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate returns the decision for an interrupt: approve, reject or ask.
func (e *Engine) Evaluate(ctx context.Context, intr domain.InterruptState) (string, error) {
	input := map[string]interface{}{
		"checkpoint_id": intr.CheckpointID,
		"reason":        intr.Reason,
	}
	if len(intr.PendingAction) > 0 {
		var action interface{}
		if err := json.Unmarshal(intr.PendingAction, &action); err == nil {
			input["pending_action"] = action
		}
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAsk, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		switch s {
		case DecisionApprove, DecisionReject:
			return s, nil
		}
	}
	return DecisionAsk, nil
}

// Decide implements the service's interrupt decider. Errors and "ask" leave
// the interrupt to the human.
func (e *Engine) Decide(ctx context.Context, intr domain.InterruptState) (domain.ResumeAction, bool) {
	decision, err := e.Evaluate(ctx, intr)
	if err != nil {
		log.Printf("WARN: interrupt policy failed for checkpoint %s: %v", intr.CheckpointID, err)
		return "", false
	}
	switch decision {
	case DecisionApprove:
		return domain.ResumeActionApprove, true
	case DecisionReject:
		return domain.ResumeActionReject, true
	}
	return "", false
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package interrupt_policy

default decision = "ask"

# Example: read-only tools never need a human
decision = "approve" {
	input.pending_action.tool_name == "read_file"
}

# Example: never delete outside the workspace
decision = "reject" {
	input.pending_action.tool_name == "delete_file"
	not startswith(input.pending_action.arguments.path, "/workspace/")
}
`
