// billingd is the standalone billing service: it serves price quotes,
// subscription lifecycle operations, and the payment provider webhook over
// HTTP, backed by PostgreSQL, Redis, and Stripe.
package main

import (
	"context"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/stackform/bizkit/modules/billing"
	"github.com/stackform/bizkit/pkg/catalog"
	"github.com/stackform/bizkit/pkg/config"
	"github.com/stackform/bizkit/pkg/coupon"
	"github.com/stackform/bizkit/pkg/httpserver"
	"github.com/stackform/bizkit/pkg/logger"
	"github.com/stackform/bizkit/pkg/payment"
	"github.com/stackform/bizkit/pkg/pg"
	"github.com/stackform/bizkit/pkg/pricing"
	"github.com/stackform/bizkit/pkg/redis"
	"github.com/stackform/bizkit/pkg/requestid"
	"github.com/stackform/bizkit/pkg/subscription"
	"github.com/stackform/bizkit/pkg/webhook"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
}

func main() {
	ctx := context.Background()

	var (
		appCfg    appConfig
		pgCfg     pg.Config
		redisCfg  redis.Config
		httpCfg   httpserver.Config
		stripeCfg payment.StripeConfig
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&stripeCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, "billingd"),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		log.Error("failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		log.Error("failed to apply migrations", logger.Error(err))
		os.Exit(1)
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.Error("failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	gateway, err := payment.NewStripeGateway(stripeCfg)
	if err != nil {
		log.Error("failed to configure payment gateway", logger.Error(err))
		os.Exit(1)
	}

	coupons := coupon.NewPgStore(pool)
	calc := pricing.NewCalculator(catalog.NewPgCatalog(pool), coupons)
	subs := subscription.NewService(
		subscription.NewPgStore(pool),
		subscription.NewPgTenantDirectory(pool),
		gateway,
		calc,
		subscription.WithCouponCounter(coupons),
		subscription.WithLogger(log),
	)
	reconciler := webhook.NewReconciler(gateway, subs,
		webhook.WithLogger(log),
		webhook.WithDeduper(webhook.NewRedisDeduper(redisClient, "")),
	)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log))
	r.Get("/ready", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/billing", billing.Router(billing.RouterOptions{
		Calculator:    calc,
		Subscriptions: subs,
		Webhooks:      reconciler,
		Tenant:        billing.HeaderTenantResolver("X-Tenant-ID"),
		Logger:        log,
	}))

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil {
		log.Error("http server exited", logger.Error(err))
		os.Exit(1)
	}
}
