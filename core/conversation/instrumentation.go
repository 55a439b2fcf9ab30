package conversation

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/conversation"

var (
	tracer = otel.Tracer(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

const (
	MetricTurnStarted   = "sync.turn_started"
	MetricTurnCompleted = "sync.turn_completed"
)
