// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

/*
TestPoolOptions_Defaults fills only the fields left at zero.
*/
func TestPoolOptions_Defaults(t *testing.T) {
	tests := []struct {
		name  string
		given PoolOptions
		want  PoolOptions
	}{
		{"zero", PoolOptions{}, PoolOptions{MaxConns: 25, MinConns: 5, StatementTimeout: 30 * time.Second}},
		{"small_pool", PoolOptions{MaxConns: 3}, PoolOptions{MaxConns: 3, MinConns: 3, StatementTimeout: 30 * time.Second}},
		{"explicit", PoolOptions{MaxConns: 40, MinConns: 8, StatementTimeout: time.Minute}, PoolOptions{MaxConns: 40, MinConns: 8, StatementTimeout: time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.given.withDefaults())
		})
	}
}

/*
TestPoolSizeFor leaves headroom beyond the worker count.
*/
func TestPoolSizeFor(t *testing.T) {
	assert.Equal(t, int32(30), PoolSizeFor(12, 8))
}

/*
TestNewPool_InvalidDSN fails before dialing.
*/
func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://%zz", PoolOptions{}, slog.Default())
	assert.ErrorContains(t, err, "invalid DSN")
}
