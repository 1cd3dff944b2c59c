// Package httpserver wraps net/http with environment-driven configuration,
// graceful shutdown on context cancellation or SIGINT/SIGTERM, and health
// probe handlers.
//
// # Usage
//
//	var cfg httpserver.Config
//	config.MustLoad(&cfg)
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server exited", logger.Error(err))
//	}
package httpserver
