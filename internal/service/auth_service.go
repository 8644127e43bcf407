package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthService coordinates registration, login and token verification.
type AuthService struct {
	credentials repository.CredentialRepository
	profiles    *ProfileService
	tx          repository.Transactor
	tokenMgr    *auth.TokenManager
	bcryptCost  int
	minPassword int
	logger      *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	CredentialRepo repository.CredentialRepository
	Profiles       *ProfileService
	Transactor     repository.Transactor
	Logger         *zap.Logger
}

// AccountInput describes a new account.
type AccountInput struct {
	Email      string
	Password   string
	FullName   string
	Role       string
	Department *string
	Phone      *string
}

// AuthResult is a signed-in profile with its access token.
type AuthResult struct {
	Profile   *domain.Profile
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	minPassword := cfg.MinPasswordLength
	if minPassword <= 0 {
		minPassword = 6
	}
	return &AuthService{
		credentials: deps.CredentialRepo,
		profiles:    deps.Profiles,
		tx:          deps.Transactor,
		tokenMgr:    auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost:  cfg.BcryptCost,
		minPassword: minPassword,
		logger:      logger,
	}
}

// Register creates a reporter account and signs it in. Self-registration
// never grants staff roles.
func (s *AuthService) Register(ctx context.Context, input AccountInput) (*AuthResult, error) {
	input.Role = string(domain.RoleReporter)
	profile, err := s.createAccount(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.issue(profile)
}

// CreateUser lets an admin create an account with any role.
func (s *AuthService) CreateUser(ctx context.Context, actor domain.Actor, input AccountInput) (*domain.Profile, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("create users")
	}
	return s.createAccount(ctx, input)
}

// Login verifies credentials, makes sure the profile exists and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	cred, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, storeError(err, "credential", email)
	}
	if err := auth.ComparePassword(cred.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}

	profile, err := s.profiles.EnsureProfile(ctx, &domain.Profile{
		ID:       cred.UserID,
		Email:    cred.Email,
		FullName: localPart(cred.Email),
		Role:     domain.RoleReporter,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(profile)
}

// Authenticate resolves a bearer token to the current profile. The role is
// read from the profile, not the token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Profile, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	}
	profile, err := s.profiles.Get(ctx, claims.UserID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.NewUnauthorized("account no longer exists")
		}
		return nil, err
	}
	return profile, nil
}

func (s *AuthService) createAccount(ctx context.Context, input AccountInput) (*domain.Profile, error) {
	email := normalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apperrors.NewValidationError("a valid email is required", map[string]any{"email": input.Email})
	}
	if len(input.Password) < s.minPassword {
		return nil, apperrors.NewValidationError("password is too short", map[string]any{"min_length": s.minPassword})
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, apperrors.NewValidationError("full_name is required", nil)
	}
	role, ok := domain.ParseRole(input.Role)
	if !ok {
		return nil, apperrors.NewValidationError("role must be one of reporter, technician, admin", map[string]any{"role": input.Role})
	}

	if _, err := s.credentials.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "credential", email)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewValidationError("password cannot be used", map[string]any{"reason": err.Error()})
	}

	profile := &domain.Profile{
		ID:       uuid.NewString(),
		Email:    email,
		FullName: fullName,
		Role:     role,
	}
	if input.Department != nil {
		profile.Department = blankToNil(*input.Department)
	}
	if input.Phone != nil {
		profile.Phone = blankToNil(*input.Phone)
	}
	// the profile and its credential are created together or not at all
	err = repository.RunInTx(ctx, s.tx, func(ctx context.Context) error {
		stored, err := s.profiles.EnsureProfile(ctx, profile)
		if err != nil {
			return err
		}
		profile = stored
		cred := &domain.Credential{UserID: profile.ID, Email: email, PasswordHash: hash}
		return storeError(s.credentials.Create(ctx, cred), "account", email)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", zap.String("user_id", profile.ID), zap.String("role", string(profile.Role)))
	return profile, nil
}

func (s *AuthService) issue(profile *domain.Profile) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(profile.ID, profile.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Profile: profile, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
