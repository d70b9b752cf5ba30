// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/truyen/internal/platform/sec"
)

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

/*
TestTokenService_RoundTrip signs and verifies tokens, rejecting foreign and expired ones.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	key := generateKey(t)
	service := sec.NewTokenServiceFromKeys(key, &key.PublicKey, "truyen.app")

	token, err := service.GenerateAccessToken("user-1", "mai", sec.RoleAuthor, time.Hour)
	require.NoError(t, err)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "mai", claims.Username)
	assert.Equal(t, string(sec.RoleAuthor), claims.Role)

	other := generateKey(t)
	foreignIssuer := sec.NewTokenServiceFromKeys(key, &key.PublicKey, "elsewhere")
	foreignKey := sec.NewTokenServiceFromKeys(other, &other.PublicKey, "truyen.app")

	expired, err := service.GenerateAccessToken("user-1", "mai", sec.RoleMember, -time.Minute)
	require.NoError(t, err)
	wrongIssuer, err := foreignIssuer.GenerateAccessToken("user-1", "mai", sec.RoleMember, time.Hour)
	require.NoError(t, err)
	wrongKey, err := foreignKey.GenerateAccessToken("user-1", "mai", sec.RoleMember, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong_issuer", wrongIssuer},
		{"wrong_key", wrongKey},
		{"garbage", "not-a-token"},
		{"tampered", token + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.VerifyToken(tt.token)
			assert.Error(t, err)
		})
	}
}

/*
TestNewTokenService_VerifyOnly loads only a public key and refuses to sign.
*/
func TestNewTokenService_VerifyOnly(t *testing.T) {
	key := generateKey(t)
	dir := t.TempDir()

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(publicPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}), 0o600))

	privatePath := filepath.Join(dir, "private.pem")
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(privatePath, privatePEM, 0o600))

	verifier, err := sec.NewTokenService("", publicPath, "truyen.app")
	require.NoError(t, err)
	_, err = verifier.GenerateAccessToken("u", "u", sec.RoleMember, time.Hour)
	assert.ErrorIs(t, err, sec.ErrSigningDisabled)

	signer, err := sec.NewTokenService(privatePath, publicPath, "truyen.app")
	require.NoError(t, err)
	token, err := signer.GenerateAccessToken("u", "u", sec.RoleMember, time.Hour)
	require.NoError(t, err)

	claims, err := verifier.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u", claims.UserID)

	_, err = sec.NewTokenService("", filepath.Join(dir, "missing.pem"), "truyen.app")
	assert.Error(t, err)
}

/*
TestUserRole_AtLeast checks the role hierarchy.
*/
func TestUserRole_AtLeast(t *testing.T) {
	tests := []struct {
		role   sec.UserRole
		target sec.UserRole
		want   bool
	}{
		{sec.RoleAdmin, sec.RoleModerator, true},
		{sec.RoleModerator, sec.RoleAuthor, true},
		{sec.RoleAuthor, sec.RoleAuthor, true},
		{sec.RoleMember, sec.RoleAuthor, false},
		{sec.UserRole("guest"), sec.RoleMember, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"_"+string(tt.target), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.AtLeast(tt.target))
		})
	}
}

/*
TestParseRole accepts known roles in any case.
*/
func TestParseRole(t *testing.T) {
	role, err := sec.ParseRole(" Moderator ")
	require.NoError(t, err)
	assert.Equal(t, sec.RoleModerator, role)

	_, err = sec.ParseRole("owner")
	assert.Error(t, err)
}
