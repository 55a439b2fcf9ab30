package conversation

import (
	"net/http"
	"time"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/telemetry"
)

const DefaultIdleTimeout = 30 * time.Second

type ControllerOption func(*Controller)

func WithHTTPClient(client *http.Client) ControllerOption {
	return func(c *Controller) {
		if client != nil {
			c.client = client
		}
	}
}

func WithMetrics(metrics telemetry.Metrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = telemetry.Safe(metrics)
	}
}

// WithErrorHandler receives transport failures and malformed chunks. It is
// not called for cancellations.
func WithErrorHandler(onError func(error)) ControllerOption {
	return func(c *Controller) {
		c.onError = onError
	}
}

// WithIdleTimeout aborts an exchange when no bytes arrive for d. Zero or a
// negative d disables the timeout.
func WithIdleTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.idleTimeout = d
	}
}

// WithMaxLineSize bounds a single response line.
func WithMaxLineSize(n int) ControllerOption {
	return func(c *Controller) {
		c.maxLineSize = n
	}
}

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithoutOptimisticTurn makes the controller wait for the first server turn
// id instead of opening a pending turn when Sync starts.
func WithoutOptimisticTurn() ControllerOption {
	return func(c *Controller) {
		c.optimistic = false
	}
}

// WithIDGenerator mints optimistic turn ids when the request carries no
// usable turn.
func WithIDGenerator(newID func() string) ControllerOption {
	return func(c *Controller) {
		if newID != nil {
			c.newID = newID
		}
	}
}
