package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestKeyspace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		cmd  redis.Cmder
		want string
	}{
		{cmd: redis.NewStringCmd(ctx, "get", "cache:ride:42"), want: "cache:ride"},
		{cmd: redis.NewIntCmd(ctx, "sadd", "declined:driver:d-1", "r-1"), want: "declined:driver"},
		{cmd: redis.NewIntCmd(ctx, "incr", "cache:ride-gen:42"), want: "cache:ride-gen"},
		{cmd: redis.NewBoolCmd(ctx, "setnx", "lock:ride:r-1", 1), want: "lock:ride"},
		{cmd: redis.NewStatusCmd(ctx, "ping"), want: "redis"},
		{cmd: redis.NewStringCmd(ctx, "get", "plain"), want: "plain"},
	}

	for _, tt := range tests {
		if got := keyspace(tt.cmd); got != tt.want {
			t.Errorf("keyspace(%v) = %q, want %q", tt.cmd.Args(), got, tt.want)
		}
	}
}
