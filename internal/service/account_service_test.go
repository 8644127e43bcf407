package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func newAuthService(store *memory.Store) *AuthService {
	return newAuthServiceWith(store, store.Credentials())
}

func newAuthServiceWith(store *memory.Store, credentials repository.CredentialRepository) *AuthService {
	return NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
		MinPasswordLength:     6,
	}, AuthDependencies{
		CredentialRepo: credentials,
		Profiles:       NewProfileService(store.Profiles(), nil),
		Transactor:     store.Transactor(),
	})
}

type failingCredentials struct {
	repository.CredentialRepository
}

func (failingCredentials) Create(context.Context, *domain.Credential) error { return errStoreDown }

func TestRegisterCreatesReporterAndAuthenticates(t *testing.T) {
	store := memory.New()
	svc := newAuthService(store)
	ctx := context.Background()

	result, err := svc.Register(ctx, AccountInput{
		Email: " Siti@Example.com ", Password: "secret1", FullName: "Siti", Role: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleReporter, result.Profile.Role)
	assert.Equal(t, "siti@example.com", result.Profile.Email)
	assert.NotEmpty(t, result.Token)

	profile, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Profile.ID, profile.ID)

	_, err = svc.Register(ctx, AccountInput{Email: "siti@example.com", Password: "secret1", FullName: "Other"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(memory.New())
	ctx := context.Background()

	for name, input := range map[string]AccountInput{
		"bad email":      {Email: "not-an-email", Password: "secret1", FullName: "X"},
		"short password": {Email: "x@example.com", Password: "12345", FullName: "X"},
		"no name":        {Email: "x@example.com", Password: "secret1", FullName: " "},
	} {
		_, err := svc.Register(ctx, input)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), name)
	}
}

func TestLogin(t *testing.T) {
	store := memory.New()
	svc := newAuthService(store)
	ctx := context.Background()
	_, err := svc.Register(ctx, AccountInput{Email: "budi@example.com", Password: "secret1", FullName: "Budi"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, "BUDI@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Budi", result.Profile.FullName)

	_, err = svc.Login(ctx, "budi@example.com", "wrong-pass")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestLoginCreatesMissingProfile(t *testing.T) {
	store := memory.New()
	svc := newAuthService(store)
	ctx := context.Background()
	hash, err := auth.HashPassword("secret1", 4)
	require.NoError(t, err)
	require.NoError(t, store.Credentials().Create(ctx, &domain.Credential{UserID: "legacy-1", Email: "dewi@example.com", PasswordHash: hash}))

	result, err := svc.Login(ctx, "dewi@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "legacy-1", result.Profile.ID)
	assert.Equal(t, domain.RoleReporter, result.Profile.Role)
	assert.Equal(t, "dewi", result.Profile.FullName)

	// second login leaves the profile untouched
	require.NoError(t, store.Profiles().Update(ctx, &domain.Profile{ID: "legacy-1", FullName: "Dewi Lestari"}))
	again, err := svc.Login(ctx, "dewi@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Dewi Lestari", again.Profile.FullName)
}

func TestAuthenticateRejects(t *testing.T) {
	store := memory.New()
	svc := newAuthService(store)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "garbage")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	token, _, err := svc.TokenManager().GenerateToken("deleted-user", domain.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, token)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestCreateUser(t *testing.T) {
	store := memory.New()
	svc := newAuthService(store)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, reporterA, AccountInput{Email: "t@example.com", Password: "secret1", FullName: "T", Role: "technician"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	profile, err := svc.CreateUser(ctx, admin, AccountInput{Email: "t@example.com", Password: "secret1", FullName: "T", Role: "teknisi"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, profile.Role)

	_, err = svc.CreateUser(ctx, admin, AccountInput{Email: "r@example.com", Password: "secret1", FullName: "R", Role: "root"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCreateUserLeavesNoProfileWhenCredentialFails(t *testing.T) {
	store := memory.New()
	svc := newAuthServiceWith(store, failingCredentials{store.Credentials()})
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, admin, AccountInput{Email: "t@example.com", Password: "secret1", FullName: "T", Role: "technician"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPersistence))

	technicians, err := store.Profiles().ListByRole(ctx, domain.RoleTechnician)
	require.NoError(t, err)
	assert.Empty(t, technicians)

	// the same email can be registered once the store recovers
	profile, err := newAuthService(store).CreateUser(ctx, admin, AccountInput{Email: "t@example.com", Password: "secret1", FullName: "T", Role: "technician"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, profile.Role)
}

func TestProfileService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name := "  Tech Uno "
	dept := "IT"
	updated, err := f.profiles.UpdateOwn(ctx, technician1, ProfileUpdateInput{FullName: &name, Department: &dept})
	require.NoError(t, err)
	assert.Equal(t, "Tech Uno", updated.FullName)
	require.NotNil(t, updated.Department)
	assert.Equal(t, "IT", *updated.Department)

	blank := " "
	_, err = f.profiles.UpdateOwn(ctx, technician1, ProfileUpdateInput{FullName: &blank})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	techs, err := f.profiles.ListTechnicians(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, techs, 2)

	_, err = f.profiles.ListTechnicians(ctx, technician1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	users, err := f.profiles.ListUsers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 5)

	_, err = f.profiles.ListUsers(ctx, reporterA)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))
}

func TestCategoryService(t *testing.T) {
	svc := NewCategoryService(memory.New().Categories())
	ctx := context.Background()

	_, err := svc.Create(ctx, technician1, CategoryInput{Name: "Hardware"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	created, err := svc.Create(ctx, admin, CategoryInput{Name: " Hardware "})
	require.NoError(t, err)
	assert.Equal(t, "Hardware", created.Name)
	assert.Equal(t, domain.DefaultCategoryColor, created.Color)

	_, err = svc.Create(ctx, admin, CategoryInput{Name: "Hardware"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	_, err = svc.Create(ctx, admin, CategoryInput{Name: "Net", Color: "blue"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = svc.Create(ctx, admin, CategoryInput{Name: ""})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAuditServiceLogsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID:       "e-1",
		Type:     events.EventTicketStatusChanged,
		TicketID: "t-1",
		Actor:    events.ActorFrom(technician1),
	}))

	entries := logs.FilterMessage(string(events.EventTicketStatusChanged)).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "t-1", fields["ticket_id"])
	assert.Equal(t, technician1.ID, fields["actor_id"])
}
