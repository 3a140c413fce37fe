// Package rlog wires up the structured logger shared by the orchestrator
// and the HTTP server. It is a thin layer over zap, named
// per subsystem the way a multi-component service typically scopes its
// logger.
package rlog

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a development-style zap logger: human-readable, colored
// levels, suitable for both the server and the CLI. Production deployments
// that want JSON output can swap the encoder config; nothing downstream
// depends on the specific encoding.
func New() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// InvocationID returns a fresh correlation ID for one run()/run_typed()
// invocation, threaded through every log line the orchestrator emits for
// that invocation so multiple concurrent runs can be told apart in output.
func InvocationID() string {
	return uuid.NewString()
}

// Fields bundles the repeated set of attributes every invocation log line
// carries.
func Fields(invocationID, plugin, connection string) []zap.Field {
	return []zap.Field{
		zap.String("invocation_id", invocationID),
		zap.String("plugin", plugin),
		zap.String("connection", connection),
	}
}

// Elapsed is a small helper for the common "log how long this took"
// pattern without importing time at every call site.
func Elapsed(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start))
}
