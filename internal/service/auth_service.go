package service

import (
	"context"
	"strings"
	"time"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
	"github.com/orgstack/identity-admin/internal/security"
)

type LoginResult struct {
	User        *domain.User
	AccessToken string
	ExpiresAt   time.Time
}

// AuthService verifies local password credentials and issues access tokens.
type AuthService struct {
	userRepo repository.UserRepository
	credRepo repository.CredentialRepository
	jwtMgr   *security.JWTManager
	tokenTTL time.Duration
}

func NewAuthService(userRepo repository.UserRepository, credRepo repository.CredentialRepository, jwtMgr *security.JWTManager, tokenTTL time.Duration) *AuthService {
	return &AuthService{userRepo: userRepo, credRepo: credRepo, jwtMgr: jwtMgr, tokenTTL: tokenTTL}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		observability.RecordLogin(ctx, "unknown_user")
		return nil, ErrInvalidCredentials
	}
	if user.Status != domain.UserStatusActive {
		observability.RecordLogin(ctx, "disabled")
		return nil, ErrInvalidCredentials
	}
	cred, err := s.credRepo.FindByUserID(user.ID)
	if err != nil {
		observability.RecordLogin(ctx, "no_credential")
		return nil, ErrInvalidCredentials
	}
	ok, err := security.VerifyPassword(cred.PasswordHash, password)
	if err != nil || !ok {
		observability.RecordLogin(ctx, "bad_password")
		return nil, ErrInvalidCredentials
	}

	access, err := s.jwtMgr.Issue(user.ID, user.Username, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	observability.RecordLogin(ctx, "success")
	return &LoginResult{User: user, AccessToken: access, ExpiresAt: now.Add(s.tokenTTL)}, nil
}

// SetPassword hashes and stores a local credential for the user.
func (s *AuthService) SetPassword(ctx context.Context, userID uint, password string) error {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		return err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	return s.credRepo.Upsert(&domain.Credential{UserID: userID, PasswordHash: hash})
}

// VerifyToken parses an access token and returns the claims.
func (s *AuthService) VerifyToken(raw string) (*security.Claims, error) {
	return s.jwtMgr.Verify(raw)
}
