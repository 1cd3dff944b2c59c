// Package webhook processes inbound payment provider webhooks: it verifies
// the delivery signature, extracts the normalized event, deduplicates by
// event ID, and hands the event to the subscription reconciler.
//
// The package is transport-agnostic. HTTP wiring lives in modules/billing;
// this package only consumes the raw payload and signature header.
//
// # Basic Usage
//
//	import (
//	    "context"
//	    "github.com/stackform/bizkit/pkg/webhook"
//	)
//
//	rec := webhook.NewReconciler(gateway, subscriptionService)
//
//	err := rec.Handle(ctx, payload, r.Header.Get("Stripe-Signature"))
//
// # Deduplication
//
// Event application is idempotent, so deduplication is optional. When the
// same Redis instance backs multiple replicas it prevents duplicate work
// across restarts:
//
//	rec := webhook.NewReconciler(gateway, subscriptionService,
//	    webhook.WithDeduper(webhook.NewRedisDeduper(redisClient, "")),
//	    webhook.WithDedupTTL(24*time.Hour),
//	)
//
// # Error Handling
//
// Handle returns payment.ErrBadSignature for unverifiable payloads, which
// callers should map to a client error so the provider does not retry.
// ErrApplyFailed signals a transient local failure; respond with a server
// error to request redelivery. Events the billing subsystem does not
// consume return nil and should be acknowledged.
package webhook
