package identity

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/taskforge/backend/domain"
	"github.com/taskforge/backend/internal/auth"
	"github.com/taskforge/backend/repository"
)

// UseCase owns the identity lifecycle: registration, login, profile reads
// and updates, token rotation and logout. All mutating operations are
// admitted through the serializer.
type UseCase struct {
	users      repository.UserRepository
	tokens     *auth.TokenService
	invites    auth.InviteValidator
	revoked    repository.TokenDenylist
	serializer *Serializer
	logger     *zap.Logger
}

func New(
	users repository.UserRepository,
	tokens *auth.TokenService,
	invites auth.InviteValidator,
	revoked repository.TokenDenylist,
	serializer *Serializer,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if serializer == nil {
		serializer = NewSerializer(0)
	}
	return &UseCase{
		users:      users,
		tokens:     tokens,
		invites:    invites,
		revoked:    revoked,
		serializer: serializer,
		logger:     logger,
	}
}

// Close drains the admission queue.
func (uc *UseCase) Close(ctx context.Context) error {
	return uc.serializer.Close(ctx)
}

// RegisterInput carries the registration form. ProfileImageRef is the blob
// reference returned by the upload store, already resolved by the handler.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	InviteToken     string
	ProfileImageRef string
}

// ProfilePatch applies only non-empty fields, matching the partial-update
// semantics of the profile form.
type ProfilePatch struct {
	Name            string
	Email           string
	Password        string
	ProfileImageRef string
}

// AuthResult is what every successful identity operation hands back: the
// user, a bearer access token, and the refresh token destined for the cookie.
type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken *auth.RefreshToken
}

// Register creates a new account. The email-uniqueness check and the insert
// run as one serialized operation.
func (uc *UseCase) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "name, email, and password required")
	}

	var result *AuthResult
	err := uc.serializer.Do(ctx, func() error {
		if _, err := uc.users.GetByEmail(ctx, in.Email); err == nil {
			return domain.ErrEmailTaken
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return domain.WrapError(domain.ErrCodeInternal, "credential store failure", err)
		}

		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "password hashing failed", err)
		}

		role := domain.RoleUser
		if in.InviteToken != "" && uc.invites.ValidateInvite(in.InviteToken) {
			role = domain.RoleAdmin
		}

		user, err := uc.users.Create(ctx, &domain.User{
			Name:            in.Name,
			Email:           in.Email,
			PasswordHash:    hash,
			Role:            role,
			ProfileImageRef: in.ProfileImageRef,
		})
		if err != nil {
			return err
		}

		result, err = uc.issueTokens(user)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("user registered",
		zap.String("user_id", result.User.ID),
		zap.String("role", string(result.User.Role)))
	return result, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password fail identically.
func (uc *UseCase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "email and password required")
	}

	var result *AuthResult
	err := uc.serializer.Do(ctx, func() error {
		user, err := uc.users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return domain.ErrInvalidCredentials
			}
			return domain.WrapError(domain.ErrCodeInternal, "credential store failure", err)
		}
		if !auth.CheckPassword(user.PasswordHash, password) {
			return domain.ErrInvalidCredentials
		}
		result, err = uc.issueTokens(user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Profile loads the acting user's record.
func (uc *UseCase) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return uc.users.GetByID(ctx, userID)
}

// UpdateProfile applies the patch and issues a fresh token pair.
func (uc *UseCase) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*AuthResult, error) {
	var result *AuthResult
	err := uc.serializer.Do(ctx, func() error {
		user, err := uc.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if patch.Name != "" {
			user.Name = patch.Name
		}
		if patch.Email != "" {
			user.Email = patch.Email
		}
		if patch.Password != "" {
			hash, err := auth.HashPassword(patch.Password)
			if err != nil {
				return domain.WrapError(domain.ErrCodeInternal, "password hashing failed", err)
			}
			user.PasswordHash = hash
		}
		if patch.ProfileImageRef != "" {
			user.ProfileImageRef = patch.ProfileImageRef
		}

		if err := uc.users.Update(ctx, user); err != nil {
			return err
		}
		result, err = uc.issueTokens(user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Rotate verifies the refresh token and mints a fresh access token. The
// refresh token itself is never rotated; it persists until expiry or logout.
func (uc *UseCase) Rotate(ctx context.Context, refreshToken string) (string, error) {
	userID, tokenID, _, err := uc.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}
	revoked, err := uc.revoked.IsRevoked(ctx, tokenID)
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeInternal, "denylist check failed", err)
	}
	if revoked {
		return "", domain.ErrTokenInvalid
	}
	return uc.tokens.IssueAccessToken(userID)
}

// Logout revokes the presented refresh token for its remaining lifetime.
// An unparsable token is not an error: the cookie gets cleared either way.
func (uc *UseCase) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	_, tokenID, remaining, err := uc.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	if err := uc.revoked.Revoke(ctx, tokenID, remaining); err != nil {
		uc.logger.Warn("refresh token revocation failed", zap.Error(err))
	}
	return nil
}

func (uc *UseCase) issueTokens(user *domain.User) (*AuthResult, error) {
	access, err := uc.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "token signing failed", err)
	}
	refresh, err := uc.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "token signing failed", err)
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}
