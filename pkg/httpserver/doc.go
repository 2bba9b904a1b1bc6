// Package httpserver wraps net/http with graceful shutdown, env-driven
// timeouts, and probe handlers.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal
// arrives, then drains in-flight requests through http.Server.Shutdown within
// a configurable deadline. Construction goes through New or NewFromConfig
// with functional options. Start failures are wrapped with ErrStart and
// shutdown failures with ErrShutdown so callers can distinguish them with
// errors.Is.
//
//	srv := httpserver.New(
//		httpserver.WithAddr(":8080"),
//		httpserver.WithShutdownTimeout(10*time.Second),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		slog.Error("server stopped", "err", err)
//	}
//
// HealthCheckHandler serves liveness when called without dependency checks
// and readiness when given one check per dependency.
package httpserver
