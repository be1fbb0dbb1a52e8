package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/internal/protocol"
	"github.com/bft-labs/faderlink/pkg/log"
)

// DefaultRequestTimeout bounds SendWait when no timeout is configured.
const DefaultRequestTimeout = 5 * time.Second

// Coordinator pairs a Listener and a Sender into a blocking request/reply.
type Coordinator struct {
	listener *Listener
	sender   *Sender
	logger   log.Logger
	timeout  atomic.Int64
}

// NewCoordinator creates a coordinator. A non-positive timeout selects
// DefaultRequestTimeout.
func NewCoordinator(l *Listener, s *Sender, logger log.Logger, timeout time.Duration) *Coordinator {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	c := &Coordinator{listener: l, sender: s, logger: logger}
	c.SetTimeout(timeout)
	return c
}

// SetTimeout changes the reply bound for later requests.
func (c *Coordinator) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultRequestTimeout
	}
	c.timeout.Store(int64(d))
}

// Timeout returns the current reply bound.
func (c *Coordinator) Timeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

// SendWait transmits msg and blocks until a sysex reply starting with tag
// arrives. A nil tag is derived from msg with protocol.ReplyTag. The wait is
// bounded by ctx and by the coordinator's timeout.
func (c *Coordinator) SendWait(ctx context.Context, msg domain.Message, tag []byte) (domain.Message, error) {
	if tag == nil {
		var err error
		if tag, err = protocol.ReplyTag(msg); err != nil {
			return domain.Message{}, err
		}
	}

	id := uuid.NewString()
	w, err := c.listener.WaitFor(tag)
	if err != nil {
		return domain.Message{}, err
	}

	if err := c.sender.Enqueue(msg); err != nil {
		c.listener.Release(w)
		return domain.Message{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	c.logger.Debug("request sent",
		log.String("request_id", id),
		log.Bytes("data", msg.Data),
		log.Bytes("tag", tag),
	)

	start := time.Now()
	reply, err := w.Await(ctx)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn("request failed",
			log.String("request_id", id),
			log.Bytes("tag", tag),
			log.Duration("elapsed", elapsed),
			log.Err(err),
		)
		return domain.Message{}, err
	}

	c.logger.Debug("reply received",
		log.String("request_id", id),
		log.Bytes("data", reply.Data),
		log.Duration("elapsed", elapsed),
	)
	return reply, nil
}

// Query sends a named canonical request and waits for its reply.
func (c *Coordinator) Query(ctx context.Context, name string) (domain.Message, error) {
	req, err := protocol.Request(name)
	if err != nil {
		return domain.Message{}, err
	}
	tag, err := protocol.ReplyTagFor(name)
	if err != nil {
		return domain.Message{}, err
	}
	return c.SendWait(ctx, req, tag)
}

// GetMode asks the device for its current operating mode.
func (c *Coordinator) GetMode(ctx context.Context) (protocol.Mode, error) {
	reply, err := c.Query(ctx, protocol.RequestMode)
	if err != nil {
		return protocol.Mode{}, err
	}
	return protocol.ParseModeReply(reply)
}
