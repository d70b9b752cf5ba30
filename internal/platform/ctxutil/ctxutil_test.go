// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/truyen/internal/platform/ctxutil"
	"github.com/taibuivan/truyen/internal/platform/sec"
)

/*
TestContext_Defaults checks the values seen by background jobs.
*/
func TestContext_Defaults(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, ctxutil.GetRequestID(ctx))
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))
	assert.Nil(t, ctxutil.GetAuthUser(ctx))
	assert.Empty(t, ctxutil.UserID(ctx))
	assert.False(t, ctxutil.ActsWithRole(ctx, "", sec.RoleMember))
}

/*
TestContext_RoundTrip stores and reads back each request value.
*/
func TestContext_RoundTrip(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	claims := &sec.AuthClaims{UserID: "author-1", Role: string(sec.RoleAuthor)}

	ctx := ctxutil.WithRequestID(context.Background(), "req-42")
	ctx = ctxutil.WithLogger(ctx, logger)
	ctx = ctxutil.WithAuthUser(ctx, claims)

	assert.Equal(t, "req-42", ctxutil.GetRequestID(ctx))
	assert.Same(t, logger, ctxutil.GetLogger(ctx))
	assert.Same(t, claims, ctxutil.GetAuthUser(ctx))
	assert.Equal(t, "author-1", ctxutil.UserID(ctx))
}

/*
TestActsWithRole only honours the caller's own claims.
*/
func TestActsWithRole(t *testing.T) {
	moderator := ctxutil.WithAuthUser(context.Background(), &sec.AuthClaims{UserID: "mod", Role: string(sec.RoleModerator)})

	tests := []struct {
		name   string
		userID string
		role   sec.UserRole
		want   bool
	}{
		{"same_role", "mod", sec.RoleModerator, true},
		{"lower_role", "mod", sec.RoleAuthor, true},
		{"higher_role", "mod", sec.RoleAdmin, false},
		{"other_user", "someone", sec.RoleMember, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ctxutil.ActsWithRole(moderator, tt.userID, tt.role))
		})
	}
}
