// Package pg provides PostgreSQL connection pooling, schema migration, and
// error classification helpers shared by the billing storage layers.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//		return err
//	}
//
// Error helpers keep store implementations free of SQLSTATE literals:
//
//	if pg.IsDuplicateKeyError(err) {
//		return subscription.ErrAlreadySubscribed
//	}
package pg
