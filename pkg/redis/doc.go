// Package redis provides Redis client construction with startup retries
// and a healthcheck probe. The billing subsystem uses it to back webhook
// event deduplication across process restarts.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	deduper := webhook.NewRedisDeduper(client, "")
package redis
