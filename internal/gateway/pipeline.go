package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/keygate/keygate/internal/metrics"
)

const (
	// usageRecordTimeout bounds the detached usage-recording call.
	usageRecordTimeout = 10 * time.Second
)

// Pipeline sequences service resolution, credential injection, forwarding,
// and usage recording for an authenticated request. Key validation has
// already happened in the API-key middleware; any failure here is a
// classified *Error.
type Pipeline struct {
	resolver  *Resolver
	forwarder *Forwarder
	tracker   *UsageTracker
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewPipeline assembles the pipeline. A nil recorder falls back to noop.
func NewPipeline(resolver *Resolver, forwarder *Forwarder, tracker *UsageTracker, recorder metrics.Recorder, logger *slog.Logger) *Pipeline {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Pipeline{
		resolver:  resolver,
		forwarder: forwarder,
		tracker:   tracker,
		metrics:   recorder,
		logger:    logger.With("component", "gateway.pipeline"),
	}
}

// Process runs one request through the pipeline. Any failure before the
// upstream exchange aborts with no side effects against the destination.
// Once a response is obtained, usage recording runs detached and its
// failure never surfaces to the caller.
func (p *Pipeline) Process(ctx context.Context, keyID, path string, req ProxyRequest) (*ProxyResponse, error) {
	svc, err := p.resolver.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("service resolved",
		slog.String("service", svc.ServiceName),
		slog.String("base_url", svc.BaseURL),
	)

	if err := InjectCredentials(req.Header, svc); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.forwarder.Forward(ctx, req, svc.BaseURL)
	if err != nil {
		var gwErr *Error
		if errors.As(err, &gwErr) {
			p.metrics.IncForwardError(gwErr.Kind.String())
		}
		return nil, err
	}

	p.metrics.IncRequestForwarded()
	p.metrics.ObserveForwardDuration(time.Since(start))

	p.logger.Debug("request forwarded",
		slog.String("service", svc.ServiceName),
		slog.Int("status", resp.Status),
		slog.Int("body_bytes", len(resp.Body)),
	)

	// Recording runs after the exchange completed and never blocks or
	// fails the response. The detached context survives caller disconnect.
	go p.recordUsage(context.WithoutCancel(ctx), keyID)

	return resp, nil
}

// recordUsage is the best-effort tail of the pipeline: failures are
// logged, never converted into a client-visible error.
func (p *Pipeline) recordUsage(ctx context.Context, keyID string) {
	ctx, cancel := context.WithTimeout(ctx, usageRecordTimeout)
	defer cancel()

	if err := p.tracker.Record(ctx, keyID); err != nil {
		p.metrics.IncUsageError()
		p.logger.Error("usage recording failed",
			slog.String("api_key_id", keyID),
			slog.String("error", err.Error()),
		)
		return
	}

	p.metrics.IncUsageRecorded()
}
