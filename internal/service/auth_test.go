package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dog-catalog/internal/core/auth"
	"dog-catalog/internal/domain"
	"dog-catalog/internal/repo"
	"dog-catalog/internal/testutil"
	"dog-catalog/pkg/utils"
)

type authFixture struct {
	svc      *AuthService
	accounts *repo.AccountRepo
	roles    *repo.RoleRepo
	jwter    *auth.JWTer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	m := testutil.NewManager(t)
	f := &authFixture{
		accounts: repo.NewAccountRepo(m),
		roles:    repo.NewRoleRepo(m),
		jwter:    &auth.JWTer{Secret: []byte("test-secret-test-secret-test-secret"), Issuer: "test", TTL: time.Hour},
	}
	f.svc = NewAuthService(f.accounts, f.roles, f.jwter, zap.NewNop())
	return f
}

func (f *authFixture) account(t *testing.T, email, password string, roles ...domain.Role) *domain.Account {
	t.Helper()
	h, err := utils.HashPasswordCost(password, bcrypt.MinCost)
	require.NoError(t, err)
	a := &domain.Account{Email: email, PasswordHash: h, FullName: ptr("Kennel Owner")}
	require.NoError(t, f.accounts.Create(context.Background(), a))
	for _, r := range roles {
		require.NoError(t, f.roles.Grant(context.Background(), a.ID, r))
	}
	return a
}

func TestAuthenticate_AdminSuccess(t *testing.T) {
	f := newAuthFixture(t)
	a := f.account(t, "owner@kennel.test", "correct horse", domain.RoleAdmin)

	s, err := f.svc.Authenticate(context.Background(), "owner@kennel.test", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, a.ID, s.Identity.ID)
	assert.Equal(t, "Kennel Owner", s.Identity.Name)
	assert.Equal(t, "admin", s.Identity.Role)
	assert.NotEmpty(t, s.Token)
	assert.True(t, s.ExpiresAt.After(time.Now()))

	claims, err := f.jwter.Parse(s.Token)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.UID)
	assert.Equal(t, "admin", claims.Role)

	resolved, err := f.svc.Resolve(s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.Identity, resolved.Identity)
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	f.account(t, "owner@kennel.test", "correct horse", domain.RoleAdmin)
	f.account(t, "visitor@kennel.test", "correct horse", domain.RoleUser)
	f.account(t, "nobody@kennel.test", "correct horse")

	cases := []struct{ name, email, password string }{
		{"wrong password", "owner@kennel.test", "wrong"},
		{"unknown account", "ghost@kennel.test", "correct horse"},
		{"email case differs", "Owner@kennel.test", "correct horse"},
		{"non-admin role", "visitor@kennel.test", "correct horse"},
		{"no role at all", "nobody@kennel.test", "correct horse"},
		{"empty password", "owner@kennel.test", ""},
		{"empty email", "", "correct horse"},
	}
	var msgs []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := f.svc.Authenticate(context.Background(), tc.email, tc.password)
			assert.Nil(t, s)
			assert.Equal(t, domain.ErrInvalidCredentials, err)
			msgs = append(msgs, err.Error())
		})
	}
	for _, m := range msgs {
		assert.Equal(t, msgs[0], m)
	}
}

func TestAuthenticate_StoreDownIsNotBadCredentials(t *testing.T) {
	m := testutil.DownManager(t)
	svc := NewAuthService(repo.NewAccountRepo(m), repo.NewRoleRepo(m),
		&auth.JWTer{Secret: []byte("x"), Issuer: "t", TTL: time.Hour}, zap.NewNop())
	_, err := svc.Authenticate(context.Background(), "owner@kennel.test", "pw")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestResolve_Invalid(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Resolve("")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.svc.Resolve("garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
