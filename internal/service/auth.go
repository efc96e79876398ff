package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dog-catalog/internal/core/auth"
	"dog-catalog/internal/domain"
	"dog-catalog/pkg/utils"
)

type accountFinder interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type roleFinder interface {
	Find(ctx context.Context, accountID string, role domain.Role) (*domain.RoleBinding, error)
}

type tokenIssuer interface {
	Issue(id auth.Identity) (string, time.Time, error)
	Parse(token string) (*auth.Claims, error)
}

// Session is the result of a successful login.
type Session struct {
	Identity  auth.Identity `json:"user"`
	Token     string        `json:"-"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type AuthService struct {
	accounts accountFinder
	roles    roleFinder
	tokens   tokenIssuer
	log      *zap.Logger
	// dummyHash 账号或角色缺失时也做一次 bcrypt 比较，失败路径耗时一致
	dummyHash string
}

func NewAuthService(accounts accountFinder, roles roleFinder, tokens tokenIssuer, l *zap.Logger) *AuthService {
	h, _ := utils.HashPassword("dummy-password-for-timing")
	return &AuthService{accounts: accounts, roles: roles, tokens: tokens, log: l.Named("auth"), dummyHash: h}
}

// Authenticate checks email and password of an admin account. Every
// credential problem, including a valid non-admin account, is reported as
// domain.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		s.burn(password)
		return nil, domain.ErrInvalidCredentials
	}

	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.burn(password)
			s.log.Info("login rejected", zap.String("reason", "unknown account"))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth.Authenticate find account: %w", err)
	}

	binding, err := s.roles.Find(ctx, acc.ID, domain.RoleAdmin)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.burn(password)
			s.log.Info("login rejected", zap.String("reason", "not admin"), zap.String("account_id", acc.ID))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth.Authenticate find role: %w", err)
	}

	if !utils.CheckPassword(password, acc.PasswordHash) {
		s.log.Info("login rejected", zap.String("reason", "bad password"), zap.String("account_id", acc.ID))
		return nil, domain.ErrInvalidCredentials
	}

	id := auth.Identity{ID: acc.ID, Name: acc.DisplayName(), Email: acc.Email, Role: string(binding.Role)}
	tok, exp, err := s.tokens.Issue(id)
	if err != nil {
		return nil, fmt.Errorf("auth.Authenticate issue token: %w", err)
	}
	s.log.Info("admin logged in", zap.String("account_id", acc.ID))
	return &Session{Identity: id, Token: tok, ExpiresAt: exp}, nil
}

// Resolve decodes a session token. Invalid or expired tokens yield
// domain.ErrUnauthorized.
func (s *AuthService) Resolve(token string) (*Session, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	c, err := s.tokens.Parse(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	var exp time.Time
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	return &Session{Identity: c.Identity(), Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) burn(password string) {
	_ = utils.CheckPassword(password, s.dummyHash)
}
