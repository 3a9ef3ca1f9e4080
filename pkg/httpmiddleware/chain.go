package httpmiddleware

import (
	"context"

	"go.uber.org/zap"
)

// ServerConfig configures the outer server middleware.
type ServerConfig struct {
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

// Server returns the outer middleware in wrapping order. RequestID and
// InjectLogger come first so that recovered panics and rate-limit rejections
// are logged and carry the request ID.
func Server(ctx context.Context, lg *zap.Logger, m Telemetry, cfg ServerConfig) []Middleware {
	return []Middleware{
		RequestID(),
		InjectLogger(lg),
		Recovery(),
		CORS(cfg.CORS),
		RateLimit(ctx, cfg.RateLimit),
		Instrument("sales-api", m),
	}
}
