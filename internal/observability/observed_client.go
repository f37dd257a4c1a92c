package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	obsmetrics "github.com/fairyhunter13/skills-warrior/internal/adapter/observability"
)

// ConnectionType names the external dependency behind an ObservedClient.
type ConnectionType string

// Connection types used across the system.
const (
	ConnectionTypeTika     ConnectionType = "tika"
	ConnectionTypeHTTP     ConnectionType = "http"
	ConnectionTypeRedis    ConnectionType = "redis"
	ConnectionTypeDatabase ConnectionType = "database"
)

const (
	// unhealthyAfter is the number of consecutive failures after which IsHealthy reports false.
	unhealthyAfter = 5
	// healthCooldown is how long an unhealthy client stays unhealthy before
	// callers may try it again.
	healthCooldown = 30 * time.Second
)

// ObservedClient wraps calls to an external dependency with a span, Prometheus
// metrics and an adaptive timeout.
type ObservedClient struct {
	AdaptiveTimeout *AdaptiveTimeoutManager

	ConnectionType ConnectionType
	Endpoint       string

	consecutiveFailures atomic.Int64
	lastFailure         atomic.Int64 // unix nanoseconds
	tracer              trace.Tracer
	now                 func() time.Time
}

// NewObservedClient creates a client whose timeout starts at baseTimeout.
func NewObservedClient(connType ConnectionType, endpoint string, baseTimeout, minTimeout, maxTimeout time.Duration) *ObservedClient {
	return &ObservedClient{
		AdaptiveTimeout: NewAdaptiveTimeoutManager(baseTimeout, minTimeout, maxTimeout),
		ConnectionType:  connType,
		Endpoint:        endpoint,
		tracer:          otel.Tracer("skills-warrior/" + string(connType)),
		now:             time.Now,
	}
}

// Execute runs fn under a span and the current adaptive timeout and records the outcome.
func (c *ObservedClient) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	spanCtx, span := c.tracer.Start(ctx, fmt.Sprintf("%s.%s", c.ConnectionType, operation))
	defer span.End()

	timeout := c.AdaptiveTimeout.GetTimeout()
	span.SetAttributes(
		attribute.String("connection.type", string(c.ConnectionType)),
		attribute.String("endpoint", c.Endpoint),
		attribute.String("operation.name", operation),
		attribute.Float64("timeout.seconds", timeout.Seconds()),
	)

	timeoutCtx, cancel := context.WithTimeout(spanCtx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(timeoutCtx)
	duration := time.Since(start)

	status := "success"
	switch {
	case err == nil:
		if c.consecutiveFailures.Swap(0) >= unhealthyAfter {
			// recovered: drop the timeout inflated by the failure streak
			c.AdaptiveTimeout.Reset()
			LoggerFromContext(ctx).Info("external dependency recovered",
				slog.String("connection_type", string(c.ConnectionType)),
				slog.String("endpoint", c.Endpoint))
		}
		c.AdaptiveTimeout.RecordSuccess(duration)
		span.SetStatus(codes.Ok, "")
	case errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		status = "timeout"
		c.AdaptiveTimeout.RecordTimeout()
		c.recordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "timeout")
	case ctx.Err() != nil:
		// caller gave up; not the dependency's fault
		status = "canceled"
		span.SetStatus(codes.Error, "canceled")
	default:
		status = "error"
		c.AdaptiveTimeout.RecordFailure()
		c.recordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Float64("duration.seconds", duration.Seconds()))

	obsmetrics.ObserveExternalCall(string(c.ConnectionType), operation, status, duration)
	successes, failures, timeouts := c.AdaptiveTimeout.Counts()
	LoggerFromContext(ctx).Debug("external call executed",
		slog.String("connection_type", string(c.ConnectionType)),
		slog.String("endpoint", c.Endpoint),
		slog.String("operation", operation),
		slog.String("status", status),
		slog.Duration("duration", duration),
		slog.Duration("timeout", timeout),
		slog.Int64("successes", successes),
		slog.Int64("failures", failures),
		slog.Int64("timeouts", timeouts),
	)
	return err
}

func (c *ObservedClient) recordFailure() {
	c.consecutiveFailures.Add(1)
	c.lastFailure.Store(c.now().UnixNano())
}

// IsHealthy reports false once the dependency failed unhealthyAfter times in
// a row, until healthCooldown has passed since the last failure. The next
// call then decides: a success clears the streak, a failure restarts the
// cooldown.
func (c *ObservedClient) IsHealthy() bool {
	if c.consecutiveFailures.Load() < unhealthyAfter {
		return true
	}
	last := time.Unix(0, c.lastFailure.Load())
	return c.now().Sub(last) >= healthCooldown
}
