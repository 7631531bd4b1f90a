package stream

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/zgsm-ai/llm-bridge/internal/client"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"github.com/zgsm-ai/llm-bridge/internal/types"
	"github.com/zgsm-ai/llm-bridge/internal/utils"
	"go.uber.org/zap"
)

// Source yields the decoded deltas of one stream
type Source interface {
	// Next blocks for the next delta and returns io.EOF at end of stream
	Next() (types.StreamDelta, error)

	// Buffered returns a delta only if one is available without blocking
	Buffered() (types.StreamDelta, bool, error)
}

// DecodeFunc turns one event payload into a delta. skip reports payloads
// that carry nothing for the accumulator, such as keep-alives.
type DecodeFunc func(data []byte) (delta types.StreamDelta, skip bool, err error)

// DoneSentinel is the payload some dialects send as the final event
const DoneSentinel = "[DONE]"

// SSESource adapts an event-stream body to a Source
type SSESource struct {
	ctx      context.Context
	reader   *client.SSEReader
	decode   DecodeFunc
	endpoint string
	stats    *utils.FrameStats
	onFrame  func()
}

// SSESourceOptions configures an SSESource
type SSESourceOptions struct {
	Endpoint      string
	MaxFrameBytes int
	Stats         *utils.FrameStats

	// OnFrame runs for every raw event, e.g. to reset an idle timer
	OnFrame func()
}

// NewSSESource creates a Source reading body. ctx is the request context;
// read failures after it is done are reported as cancellation.
func NewSSESource(ctx context.Context, body io.Reader, decode DecodeFunc, opts SSESourceOptions) *SSESource {
	return &SSESource{
		ctx:      ctx,
		reader:   client.NewSSEReader(body, opts.MaxFrameBytes),
		decode:   decode,
		endpoint: opts.Endpoint,
		stats:    opts.Stats,
		onFrame:  opts.OnFrame,
	}
}

// Next implements Source
func (s *SSESource) Next() (types.StreamDelta, error) {
	for {
		ev, err := s.reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return types.StreamDelta{}, io.EOF
			}
			if errors.Is(err, client.ErrFrameTooLarge) {
				return types.StreamDelta{}, types.NewMalformedResponseError(s.endpoint, "stream frame too large", err)
			}
			return types.StreamDelta{}, client.WrapReadError(s.ctx, s.endpoint, err)
		}

		delta, skip, err := s.handle(ev)
		if err != nil {
			return types.StreamDelta{}, err
		}
		if !skip {
			return delta, nil
		}
	}
}

// Buffered implements Source
func (s *SSESource) Buffered() (types.StreamDelta, bool, error) {
	for {
		ev, ok := s.reader.Buffered()
		if !ok {
			return types.StreamDelta{}, false, nil
		}
		delta, skip, err := s.handle(ev)
		if err != nil {
			return types.StreamDelta{}, false, err
		}
		if !skip {
			return delta, true, nil
		}
	}
}

func (s *SSESource) handle(ev client.Event) (types.StreamDelta, bool, error) {
	s.stats.OnFrame()
	if s.onFrame != nil {
		s.onFrame()
	}

	data := bytes.TrimSpace(ev.Data)
	if string(data) == DoneSentinel {
		return types.StreamDelta{Done: true}, false, nil
	}
	if len(data) == 0 {
		return types.StreamDelta{}, true, nil
	}

	delta, skip, err := s.decode(data)
	if err != nil {
		if _, ok := types.AsLLMError(err); ok {
			return types.StreamDelta{}, false, err
		}
		return types.StreamDelta{}, false, types.NewMalformedResponseError(s.endpoint, "invalid stream frame", err)
	}
	return delta, skip, nil
}

// Run drives src into acc until a terminal marker or end of stream and
// returns the finalized response. ctx is checked before every read. After
// the terminal marker only deltas that are already buffered are merged, and
// a buffered frame that fails to decode is logged and dropped.
func Run(ctx context.Context, src Source, acc *Accumulator) (*types.ChatResponse, error) {
	endpoint := acc.opts.Endpoint

	for !acc.Done() {
		if err := ctx.Err(); err != nil {
			return nil, types.NewCancellationError(endpoint, err)
		}

		delta, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := acc.Add(delta); err != nil {
			return nil, err
		}
	}

	if acc.Done() {
		for ctx.Err() == nil {
			delta, ok, err := src.Buffered()
			if err != nil {
				logger.Warn("ignoring undecodable frame after end of stream",
					zap.String("endpoint", endpoint),
					zap.Error(err),
				)
				break
			}
			if !ok {
				break
			}
			if err := acc.Add(delta); err != nil {
				return nil, err
			}
			if delta.Done {
				break
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, types.NewCancellationError(endpoint, err)
	}
	return acc.Finalize()
}
