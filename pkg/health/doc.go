// Package health serves liveness and readiness probes.
//
// The handlers sit beside the request pipeline rather than inside it: a probe
// must answer even when a middleware or the page cache is broken. The root
// package mounts them through subframe.WithHealthChecks.
//
//	app := subframe.New(
//	    subframe.WithHealthChecks(
//	        subframe.WithReadinessCheck("redis", redis.Probe(client)),
//	        subframe.WithReadinessTimeout(3*time.Second),
//	    ),
//	)
//
// They also work on any router:
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "sqlite": db.PingContext,
//	}, health.WithTimeout(2*time.Second)))
//
// Checks run concurrently under one shared timeout. Probes get "OK" or the
// status text of 503. Clients sending Accept: application/json or ?format=json
// receive the per-check report:
//
//	{"status":"unhealthy","checks":{"redis":{"status":"unhealthy","error":"health: check timeout"}}}
//
// [Run] evaluates the same checks without HTTP, which the example site uses
// before it starts listening. Its error wraps [ErrCheckFailed]; a check cut
// off by the timeout reports [ErrCheckTimeout].
package health
