package transport

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"

	"execdoc/internal/core/config"
	"execdoc/internal/shared/util"
)

// Stream serves framed JSON-RPC over a reader and writer pair, typically
// stdin and stdout. Requests are handled one at a time.
type Stream struct {
	dispatcher *Dispatcher
	limiter    *util.Limiter
	logger     *slog.Logger
	maxSize    int

	mu      sync.Mutex
	running bool
}

func NewStream(dispatcher *Dispatcher, cfg config.RateLimit, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		dispatcher: dispatcher,
		limiter:    util.NewLimiter(cfg),
		logger:     logger,
		maxSize:    DefaultMaxMessageSize,
	}
}

// Serve blocks until r is exhausted or ctx is cancelled. A clean end of
// input returns nil.
func (s *Stream) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return stderrors.New("stream server already running")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)
	s.logger.Info("stream server started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := ReadMessage(reader, s.maxSize)
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				s.logger.Info("stream closed")
				return nil
			}
			return err
		}

		var out []byte
		if !s.limiter.Allow() {
			out, _ = json.Marshal(errorResponse(requestID(payload), CodeRateLimited, "Rate limit exceeded"))
		} else {
			out = s.dispatcher.Handle(ctx, payload)
		}
		if out == nil {
			continue
		}
		if err := WriteMessage(writer, out); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
}
