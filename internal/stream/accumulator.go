// Package stream reconstructs complete assistant turns from streamed deltas.
package stream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"github.com/zgsm-ai/llm-bridge/internal/types"
	"github.com/zgsm-ai/llm-bridge/internal/utils"
	"go.uber.org/zap"
)

// MaxToolCallIndex is the largest tool-call index accepted from a vendor
const MaxToolCallIndex = 1023

// ErrFinalized is returned when an Accumulator is used after Finalize
var ErrFinalized = errors.New("accumulator already finalized")

// Observer receives per-stream events, e.g. for metrics. Implementations
// must be cheap; they run on the read loop.
type Observer interface {
	ObserveFrame()
	ObserveFirstDelta()
	ObserveToolArgumentFallback(toolName string)
}

// Options configures one Accumulator
type Options struct {
	// OnDelta receives every text fragment synchronously, in order
	OnDelta types.DeltaFunc

	// StrictToolArguments turns an unparseable tool argument buffer into an
	// error instead of an empty-object fallback
	StrictToolArguments bool

	Observer Observer

	// Endpoint labels errors raised by the accumulator
	Endpoint string

	// NewToolCallID generates ids for tool calls the vendor left unnamed;
	// nil uses NewToolCallID
	NewToolCallID func() string
}

type toolSlot struct {
	used bool
	id   string
	name string
	args []byte
}

// Accumulator merges the deltas of one streaming call. It is owned by that
// call and must not be shared.
type Accumulator struct {
	opts Options

	text         strings.Builder
	slots        []toolSlot
	finishReason *string
	usage        *types.Usage

	sawText   bool
	done      bool
	finalized bool
}

// NewAccumulator creates an empty accumulator
func NewAccumulator(opts Options) *Accumulator {
	if opts.NewToolCallID == nil {
		opts.NewToolCallID = NewToolCallID
	}
	return &Accumulator{opts: opts}
}

// Add merges one delta. Text is forwarded to OnDelta before Add returns;
// a callback error is returned unchanged and the stream should be aborted.
func (a *Accumulator) Add(delta types.StreamDelta) error {
	if a.finalized {
		return ErrFinalized
	}
	if a.opts.Observer != nil {
		a.opts.Observer.ObserveFrame()
	}

	if delta.Text != "" {
		a.text.WriteString(delta.Text)
		if !a.sawText {
			a.sawText = true
			if a.opts.Observer != nil {
				a.opts.Observer.ObserveFirstDelta()
			}
		}
		if a.opts.OnDelta != nil {
			if err := a.opts.OnDelta(delta.Text); err != nil {
				return err
			}
		}
	}

	for _, frag := range delta.ToolCalls {
		slot, err := a.slot(frag.Index)
		if err != nil {
			return err
		}
		slot.used = true
		if slot.id == "" && frag.ID != "" {
			slot.id = frag.ID
		}
		if slot.name == "" && frag.Name != "" {
			slot.name = frag.Name
		}
		slot.args = append(slot.args, frag.Arguments...)
	}

	if delta.FinishReason != nil && a.finishReason == nil {
		reason := *delta.FinishReason
		a.finishReason = &reason
	}
	if delta.Usage != nil {
		usage := *delta.Usage
		a.usage = &usage
	}
	if delta.Terminal() {
		a.done = true
	}
	return nil
}

// slot returns the arena slot for index, growing the arena as needed
func (a *Accumulator) slot(index int) (*toolSlot, error) {
	if index < 0 || index > MaxToolCallIndex {
		return nil, types.NewMalformedResponseError(a.opts.Endpoint,
			fmt.Sprintf("tool call index %d out of range [0, %d]", index, MaxToolCallIndex), nil)
	}
	if index >= len(a.slots) {
		if index < cap(a.slots) {
			a.slots = a.slots[:index+1]
		} else {
			grown := make([]toolSlot, index+1, 2*(index+1))
			copy(grown, a.slots)
			a.slots = grown
		}
	}
	return &a.slots[index], nil
}

// Done reports whether a terminal marker has been seen
func (a *Accumulator) Done() bool {
	return a.done
}

// Finalize converts the accumulated state into a response. It may be
// called once.
func (a *Accumulator) Finalize() (*types.ChatResponse, error) {
	if a.finalized {
		return nil, ErrFinalized
	}
	a.finalized = true

	resp := &types.ChatResponse{Usage: a.usage}
	if a.finishReason != nil {
		resp.FinishReason = *a.finishReason
	}
	if a.text.Len() > 0 {
		text := a.text.String()
		resp.Text = &text
	}

	for index := range a.slots {
		slot := &a.slots[index]
		if !slot.used {
			continue
		}
		if slot.name == "" {
			return nil, types.NewMalformedResponseError(a.opts.Endpoint,
				fmt.Sprintf("tool call at index %d has no name", index), nil)
		}

		args, err := ToolArguments(slot.name, string(slot.args), a.opts)
		if err != nil {
			return nil, err
		}

		id := slot.id
		if id == "" {
			id = a.opts.NewToolCallID()
		}
		resp.ToolCalls = append(resp.ToolCalls, types.ToolCall{
			ID:        id,
			Name:      slot.name,
			Arguments: args,
		})
	}

	if resp.IsEmpty() && !a.done {
		return nil, types.NewMalformedResponseError(a.opts.Endpoint,
			"stream ended without content or a terminal marker", nil)
	}
	return resp, nil
}

// ToolArguments parses a raw tool argument buffer, repairing it once. An
// irrecoverable buffer becomes an empty object with a warning, or an error
// when opts.StrictToolArguments is set.
func ToolArguments(toolName, raw string, opts Options) (map[string]any, error) {
	args, err := utils.ParseJSONObject(raw)
	if err == nil {
		return args, nil
	}
	if opts.StrictToolArguments {
		return nil, types.NewMalformedResponseError(opts.Endpoint,
			fmt.Sprintf("invalid arguments for tool call %q", toolName), err)
	}

	logger.Warn("tool call arguments unparseable, using empty arguments",
		zap.String("tool", toolName),
		zap.Error(err),
	)
	if opts.Observer != nil {
		opts.Observer.ObserveToolArgumentFallback(toolName)
	}
	return map[string]any{}, nil
}

// NewToolCallID returns a locally unique tool call id: "call_" followed by
// a time-ordered UUID
func NewToolCallID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "call_" + uuid.NewString()
	}
	return "call_" + id.String()
}
