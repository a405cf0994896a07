package ping

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis returns a Prober that issues a single PING against rdb. It is a
// convenience constructor for daemons that speak the Redis protocol
// (Redis itself, or anything wire-compatible), sparing callers from
// hand-writing a callable ping_spec around a client library.
//
// Connection errors that mean "not up yet" (refused, timed out, reset,
// no route) classify as Down through the same rules as any other
// callable probe; anything else surfaces as ProbeError so a
// misconfigured client (bad auth, wrong DB index) is not mistaken for a
// daemon that simply hasn't started.
func Redis(rdb *redis.Client) Prober {
	return Func(func(ctx context.Context) (any, error) {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return false, err
		}
		return true, nil
	})
}

// WatchRedis runs a background reconnect-aware health loop against rdb,
// invoking onUp/onDown on transitions, until ctx is cancelled. Unlike
// Redis, which is a single-shot Prober compatible with the Supervisor's
// synchronous polling loop, WatchRedis is for callers who want an
// independent liveness feed (e.g. to drive a dashboard) and is not used
// by start/stop/connect itself. Adapted from the teacher's continuously
// running redishealth.Monitor.
func WatchRedis(ctx context.Context, rdb *redis.Client, interval time.Duration, onUp, onDown func()) {
	prober := Redis(rdb)
	connected := true
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, _ := prober.Ping(ctx)
			up := result == Up
			if up && !connected && onUp != nil {
				onUp()
			}
			if !up && connected && onDown != nil {
				onDown()
			}
			connected = up
		}
	}
}
