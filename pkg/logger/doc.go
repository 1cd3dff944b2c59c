// Package logger builds configured slog.Logger instances with environment
// presets, static service attributes, and request-scoped attribute
// extraction from the context.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Environment, "billing"),
//		logger.WithContextValue("request_id", requestIDKey),
//	)
//	logger.SetAsDefault(log)
//
// Attr helpers keep log keys consistent across the codebase:
//
//	log.Info("subscription canceled",
//		logger.TenantID(tenantID),
//		logger.SubscriptionID(sub.ID),
//	)
package logger
