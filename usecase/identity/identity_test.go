package identity

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/backend/domain"
	"github.com/taskforge/backend/internal/auth"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = *user
	return user, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) ListImageRefs(_ context.Context) ([]string, error) {
	return nil, nil
}

type fakeDenylist struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newFakeDenylist() *fakeDenylist {
	return &fakeDenylist{revoked: make(map[string]bool)}
}

func (d *fakeDenylist) Revoke(_ context.Context, tokenID string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[tokenID] = true
	return nil
}

func (d *fakeDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revoked[tokenID], nil
}

func newTestIdentity(t *testing.T, inviteSecret string) (*UseCase, *fakeUserRepo) {
	t.Helper()
	users := newFakeUserRepo()
	tokens := auth.NewTokenService(auth.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "test",
	})
	uc := New(users, tokens, auth.NewSharedSecretInviteValidator(inviteSecret), newFakeDenylist(), NewSerializer(8), nil)
	t.Cleanup(func() { uc.Close(context.Background()) })
	return uc, users
}

func TestRegister(t *testing.T) {
	uc, _ := newTestIdentity(t, "invite-secret")
	ctx := context.Background()

	result, err := uc.Register(ctx, RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, result.User.Role)
	assert.NotEmpty(t, result.AccessToken)
	require.NotNil(t, result.RefreshToken)
	assert.NotEmpty(t, result.RefreshToken.Signed)
	assert.NotEqual(t, "password123", result.User.PasswordHash)

	_, err = uc.Register(ctx, RegisterInput{
		Name:     "Alice Again",
		Email:    "alice@example.com",
		Password: "different",
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))

	_, err = uc.Register(ctx, RegisterInput{Email: "no-name@example.com", Password: "x"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestRegisterInviteToken(t *testing.T) {
	uc, _ := newTestIdentity(t, "invite-secret")
	ctx := context.Background()

	admin, err := uc.Register(ctx, RegisterInput{
		Name:        "Root",
		Email:       "root@example.com",
		Password:    "password123",
		InviteToken: "invite-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.User.Role)

	// A wrong invite token silently yields a regular account.
	member, err := uc.Register(ctx, RegisterInput{
		Name:        "Member",
		Email:       "member@example.com",
		Password:    "password123",
		InviteToken: "wrong",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, member.User.Role)
}

func TestConcurrentRegistrationSameEmail(t *testing.T) {
	uc, users := newTestIdentity(t, "")
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = uc.Register(ctx, RegisterInput{
				Name:     "Racer",
				Email:    "race@example.com",
				Password: "password123",
			})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeConflict))
		}
	}
	assert.Equal(t, 1, succeeded)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLogin(t *testing.T) {
	uc, _ := newTestIdentity(t, "")
	ctx := context.Background()

	_, err := uc.Register(ctx, RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	result, err := uc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.NotEmpty(t, result.AccessToken)

	// Unknown email and wrong password fail with the same error.
	_, unknownErr := uc.Login(ctx, "nobody@example.com", "password123")
	_, wrongErr := uc.Login(ctx, "alice@example.com", "wrong")
	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.True(t, domain.IsDomainError(unknownErr, domain.ErrCodeUnauthenticated))
	assert.True(t, domain.IsDomainError(wrongErr, domain.ErrCodeUnauthenticated))
}

func TestUpdateProfile(t *testing.T) {
	uc, _ := newTestIdentity(t, "")
	ctx := context.Background()

	registered, err := uc.Register(ctx, RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	originalHash := registered.User.PasswordHash

	result, err := uc.UpdateProfile(ctx, registered.User.ID, ProfilePatch{Name: "Alice B"})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", result.User.Name)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.Equal(t, originalHash, result.User.PasswordHash)
	assert.NotEmpty(t, result.AccessToken)

	result, err = uc.UpdateProfile(ctx, registered.User.ID, ProfilePatch{Password: "new-password"})
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, result.User.PasswordHash)

	_, err = uc.Login(ctx, "alice@example.com", "new-password")
	assert.NoError(t, err)

	_, err = uc.UpdateProfile(ctx, "missing-user", ProfilePatch{Name: "x"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestRotate(t *testing.T) {
	uc, _ := newTestIdentity(t, "")
	ctx := context.Background()

	registered, err := uc.Register(ctx, RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	access, err := uc.Rotate(ctx, registered.RefreshToken.Signed)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	// An access token never passes refresh verification.
	_, err = uc.Rotate(ctx, registered.AccessToken)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthenticated))

	_, err = uc.Rotate(ctx, "garbage")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthenticated))
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	uc, _ := newTestIdentity(t, "")
	ctx := context.Background()

	registered, err := uc.Register(ctx, RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	require.NoError(t, uc.Logout(ctx, registered.RefreshToken.Signed))

	_, err = uc.Rotate(ctx, registered.RefreshToken.Signed)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthenticated))

	// Unparsable or missing tokens are not an error on logout.
	assert.NoError(t, uc.Logout(ctx, "garbage"))
	assert.NoError(t, uc.Logout(ctx, ""))
}
