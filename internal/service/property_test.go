package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

func TestStreamingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("streaming text is the concatenation of text deltas", prop.ForAll(
		func(deltas []string) bool {
			h := newHarness(t, Options{})
			_, call := h.send(t, "q")
			defer call.End()

			for _, d := range deltas {
				call.Emit(t, domain.EventTypeText, map[string]any{"content": d})
			}
			return h.svc.State().StreamingText == strings.Join(deltas, "")
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("done appends exactly one assistant message and empties the buffer", prop.ForAll(
		func(deltas []string, repeats int) bool {
			h := newHarness(t, Options{})
			_, call := h.send(t, "q")
			defer call.End()

			for _, d := range deltas {
				call.Emit(t, domain.EventTypeText, map[string]any{"content": d})
			}
			final := "final:" + strings.Join(deltas, "")
			for i := 0; i < repeats; i++ {
				call.Emit(t, domain.EventTypeDone, map[string]any{"final_message": map[string]any{"content": final}})
			}

			state := h.svc.State()
			return len(state.Messages) == 2 &&
				state.Messages[1].Content == final &&
				state.StreamingText == "" &&
				!state.Loading
		},
		gen.SliceOf(gen.AlphaString()),
		gen.IntRange(1, 3),
	))

	properties.Property("pending tool calls are the unanswered calls in arrival order", prop.ForAll(
		func(ops []int) bool {
			h := newHarness(t, Options{})
			_, call := h.send(t, "q")
			defer call.End()

			var model []string
			for _, op := range ops {
				if op > 0 {
					id := fmt.Sprintf("t%d", op)
					call.Emit(t, domain.EventTypeToolCall, map[string]any{"tool_call_id": id, "tool_name": "tool"})
					model = append(model, id)
					continue
				}
				id := fmt.Sprintf("t%d", -op)
				call.Emit(t, domain.EventTypeToolResult, map[string]any{"tool_call_id": id, "success": true})
				for i, m := range model {
					if m == id {
						model = append(model[:i:i], model[i+1:]...)
						break
					}
				}
			}

			pending := h.svc.PendingToolCalls()
			if len(pending) != len(model) {
				return false
			}
			for i := range pending {
				if pending[i].ID != model[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-4, 4)),
	))

	properties.Property("cancellation at any point keeps only the user message", prop.ForAll(
		func(deltas []string, cutoff int) bool {
			h := newHarness(t, Options{})
			_, call := h.send(t, "q")

			for i, d := range deltas {
				if i == cutoff {
					h.svc.CancelRequest()
				}
				call.Emit(t, domain.EventTypeText, map[string]any{"content": d})
			}
			if cutoff >= len(deltas) {
				h.svc.CancelRequest()
			}
			call.Emit(t, domain.EventTypeDone, map[string]any{"final_message": map[string]any{"content": "late"}})

			state := h.svc.State()
			return len(state.Messages) == 1 &&
				state.Messages[0].Role == domain.RoleUser &&
				state.StreamingText == "" &&
				!state.Loading &&
				len(h.errors()) == 0
		},
		gen.SliceOf(gen.AlphaString()),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
