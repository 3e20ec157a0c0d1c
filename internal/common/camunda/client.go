// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ai-asa/chat-websearch/internal/common/config"
	"github.com/ai-asa/chat-websearch/internal/common/errors"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
)

// Backoff doubles the delay after each failed attempt, capped at Max.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

func (b Backoff) delay(attempt int) time.Duration {
	if attempt >= 30 {
		return b.Max
	}
	d := b.Base << attempt
	if d <= 0 || (b.Max > 0 && d > b.Max) {
		return b.Max
	}
	return d
}

// DefaultBackoff covers a broker that is still starting next to the workers.
var DefaultBackoff = Backoff{Attempts: 10, Base: 2 * time.Second, Max: 30 * time.Second}

type Options struct {
	GatewayAddress string
	Plaintext      bool
	// DialTimeout bounds each topology probe.
	DialTimeout time.Duration
	Backoff     Backoff
}

// OptionsFromConfig maps the camunda config section; brokers are reached in plaintext.
func OptionsFromConfig(cfg config.CamundaConfig) Options {
	timeout := config.GetDuration(cfg.RequestTimeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return Options{
		GatewayAddress: cfg.BrokerAddress,
		Plaintext:      true,
		DialTimeout:    timeout,
		Backoff:        DefaultBackoff,
	}
}

// Client is a Zeebe gateway connection verified by a topology request.
type Client struct {
	zb   zbc.Client
	opts Options
}

// Topology is the part of the gateway topology reported by readiness checks.
type Topology struct {
	GatewayVersion string `json:"gatewayVersion"`
	Brokers        int    `json:"brokers"`
	Partitions     int32  `json:"partitions"`
}

// Dial connects to the gateway and retries the topology probe with backoff until it answers.
func Dial(ctx context.Context, opts Options, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	zb, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         opts.GatewayAddress,
		UsePlaintextConnection: opts.Plaintext,
	})
	if err != nil {
		return nil, fmt.Errorf("create zeebe client: %w", err)
	}

	c := &Client{zb: zb, opts: opts}
	topo, err := Retry(ctx, opts.Backoff, "topology", func(ctx context.Context) (Topology, error) {
		topo, err := c.Topology(ctx)
		if err != nil {
			log.Warn("Zeebe gateway not ready", map[string]interface{}{
				"gateway": opts.GatewayAddress,
				"error":   err.Error(),
			})
		}
		return topo, err
	})
	if err != nil {
		_ = zb.Close()
		return nil, err
	}

	log.Info("Zeebe gateway connected", map[string]interface{}{
		"gateway":    opts.GatewayAddress,
		"version":    topo.GatewayVersion,
		"brokers":    topo.Brokers,
		"partitions": topo.Partitions,
	})
	return c, nil
}

// Zeebe returns the raw client for job workers.
func (c *Client) Zeebe() zbc.Client {
	return c.zb
}

func (c *Client) Close() error {
	return c.zb.Close()
}

// Topology asks the gateway for its cluster view, bounded by DialTimeout.
func (c *Client) Topology(ctx context.Context) (Topology, error) {
	if c.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.DialTimeout)
		defer cancel()
	}
	resp, err := c.zb.NewTopologyCommand().Send(ctx)
	if err != nil {
		return Topology{}, err
	}
	return Topology{
		GatewayVersion: resp.GetGatewayVersion(),
		Brokers:        len(resp.GetBrokers()),
		Partitions:     resp.GetPartitionsCount(),
	}, nil
}

// Retry runs fn until it succeeds, fails permanently or the attempts run out. The final
// error is mapped onto the StandardError taxonomy so job failures classify it.
func Retry[T any](ctx context.Context, b Backoff, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := b.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var zero T
	for attempt := 0; ; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		if !transient(err) || attempt+1 >= attempts {
			return zero, mapError(op, attempt+1, err)
		}

		select {
		case <-time.After(b.delay(attempt)):
		case <-ctx.Done():
			return zero, fmt.Errorf("zeebe %s cancelled after %d attempts: %w", op, attempt+1, ctx.Err())
		}
	}
}

func transient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	case codes.Unknown:
		return err == context.DeadlineExceeded
	}
	return false
}

func mapError(op string, attempts int, err error) error {
	wrapped := fmt.Errorf("zeebe %s failed after %d attempts: %w", op, attempts, err)
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return errors.NewTimeoutError("zeebe", wrapped)
	case codes.NotFound:
		return errors.NewResourceNotFoundError("zeebe", wrapped.Error())
	}
	if err == context.DeadlineExceeded {
		return errors.NewTimeoutError("zeebe", wrapped)
	}
	return errors.NewExternalServiceError("zeebe", wrapped)
}
