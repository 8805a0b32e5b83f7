// Package redis connects the page cache to a Redis server.
//
// [Connect] turns a [Config] into a go-redis client and retries the initial
// ping with a linear backoff, logging each failed attempt through the logger
// carried by the context. [Probe] and [Closer] adapt the client to the
// application's readiness checks and shutdown hooks:
//
//	client, err := redis.Connect(ctx, redis.Config{URL: os.Getenv("REDIS_URL")})
//	if err != nil {
//		return err
//	}
//	pages := cache.NewRedis[middlewares.CachedPage](client, nil, cache.WithPrefix("pages"))
//
//	app := subframe.New(
//		subframe.WithHealthChecks(subframe.WithReadinessCheck("redis", redis.Probe(client))),
//	)
//	return app.Run(":8080", subframe.ShutdownHook(redis.Closer(client)))
//
// Only redis:// and rediss:// URLs are accepted.
package redis
