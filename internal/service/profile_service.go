package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ProfileService manages helpdesk user profiles.
type ProfileService struct {
	profiles repository.ProfileRepository
	logger   *zap.Logger
}

// ProfileUpdateInput holds the fields a user may change on their own
// profile. Nil leaves a field unchanged; an empty department or phone clears it.
type ProfileUpdateInput struct {
	FullName   *string
	Department *string
	Phone      *string
}

func NewProfileService(profiles repository.ProfileRepository, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{profiles: profiles, logger: logger}
}

// Get loads a profile by id.
func (s *ProfileService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "profile", id)
	}
	return profile, nil
}

// EnsureProfile returns the stored profile for seed.ID, creating it from
// seed when absent. Calling it again never changes an existing profile.
func (s *ProfileService) EnsureProfile(ctx context.Context, seed *domain.Profile) (*domain.Profile, error) {
	existing, err := s.profiles.GetByID(ctx, seed.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "profile", seed.ID)
	}
	if !seed.Role.Valid() {
		seed.Role = domain.RoleReporter
	}
	if err := s.profiles.Upsert(ctx, seed); err != nil {
		return nil, storeError(err, "profile", seed.ID)
	}
	s.logger.Info("profile created", zap.String("profile_id", seed.ID), zap.String("role", string(seed.Role)))
	return seed, nil
}

// UpdateOwn applies input to the actor's own profile.
func (s *ProfileService) UpdateOwn(ctx context.Context, actor domain.Actor, input ProfileUpdateInput) (*domain.Profile, error) {
	profile, err := s.Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, apperrors.NewValidationError("full_name must not be empty", nil)
		}
		profile.FullName = name
	}
	if input.Department != nil {
		profile.Department = blankToNil(*input.Department)
	}
	if input.Phone != nil {
		profile.Phone = blankToNil(*input.Phone)
	}
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, storeError(err, "profile", actor.ID)
	}
	return profile, nil
}

// ListUsers returns every profile, newest first. Admin only.
func (s *ProfileService) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.Profile, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("list users")
	}
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, storeError(err, "profile", "")
	}
	return nonNil(profiles), nil
}

// ListTechnicians returns the candidates for assignment. Admin only.
func (s *ProfileService) ListTechnicians(ctx context.Context, actor domain.Actor) ([]domain.Profile, error) {
	if !domain.CanAssign(actor) {
		return nil, forbidden("list technicians")
	}
	profiles, err := s.profiles.ListByRole(ctx, domain.RoleTechnician)
	if err != nil {
		return nil, storeError(err, "profile", "")
	}
	return nonNil(profiles), nil
}

func blankToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(profiles []domain.Profile) []domain.Profile {
	if profiles == nil {
		return []domain.Profile{}
	}
	return profiles
}
