package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ivyscans/api/internal/apperr"
	"github.com/ivyscans/api/internal/config"
	"github.com/ivyscans/api/internal/database/tokens"
	"github.com/ivyscans/api/internal/entities"
	"github.com/ivyscans/api/internal/library"
)

var (
	ErrMissingCredentials    = apperr.New(apperr.KindValidation, "Email and password are required.")
	ErrMissingRegistration   = apperr.New(apperr.KindValidation, "Username, email and password are required.")
	ErrInvalidCredentials    = apperr.New(apperr.KindAuth, "Invalid email or password.")
	ErrInvalidUsername       = library.ErrInvalidUsername
	ErrInvalidEmail          = library.ErrInvalidEmail
	ErrEmailTaken            = library.ErrEmailTaken
	ErrUsernameTaken         = library.ErrUsernameTaken
	ErrInvalidOrExpiredToken = apperr.New(apperr.KindAuth, "Invalid or expired refresh token")
)

// StatsProvider computes reading statistics for the user summary.
type StatsProvider interface {
	ComputeReadingStats(ctx context.Context, userID string) (library.ReadingStats, error)
}

// TokenPair is returned by a refresh: no user details.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Token        string               `json:"token"`
	RefreshToken string               `json:"refreshToken"`
	User         *library.UserProfile `json:"user"`
}

// Service handles authentication and session credentials.
type Service struct {
	db     *gorm.DB
	tokens *tokens.Repository
	issuer *TokenIssuer
	stats  StatsProvider
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, issuer *TokenIssuer, stats StatsProvider, cfg config.Auth) *Service {
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.DefaultAvatar == "" {
		cfg.DefaultAvatar = config.DefaultAvatar
	}
	return &Service{
		db:     db,
		tokens: tokens.NewRepository(db),
		issuer: issuer,
		stats:  stats,
		config: cfg,
		now:    time.Now,
	}
}

// Login verifies credentials and issues a session token and a refresh token.
// Unknown email and wrong password fail with the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	var user entities.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Storage(err, "load user")
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Storage(err, "verify password")
	}

	return s.authResponse(ctx, &user)
}

// Register creates a user and logs them in.
// Email uniqueness is checked before username uniqueness.
func (s *Service) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingRegistration
	}
	if err := library.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := library.ValidateEmail(email); err != nil {
		return nil, err
	}

	if taken, err := s.exists(ctx, "email = ?", email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.exists(ctx, "username = ?", username); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, apperr.Storage(err, "hash password")
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Avatar:       s.config.DefaultAvatar,
		JoinDate:     s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with a concurrent registration.
			taken, err := s.exists(ctx, "email = ?", email)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrEmailTaken
			}
			return nil, ErrUsernameTaken
		}
		return nil, apperr.Storage(err, "create user")
	}

	return s.authResponse(ctx, user)
}

// Logout revokes every refresh token of the user. Idempotent.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if _, err := s.tokens.DeleteForUser(ctx, userID); err != nil {
		return apperr.Storage(err, "revoke refresh tokens")
	}
	return nil
}

// RefreshToken exchanges a valid refresh token for a new token pair.
// The presented token is consumed: a second use fails.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	var pair *TokenPair
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tokens.WithTx(tx)

		stored, err := repo.FindValid(ctx, HashToken(refreshToken), s.now())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidOrExpiredToken
		}
		if err != nil {
			return apperr.Storage(err, "load refresh token")
		}

		consumed, err := repo.Consume(ctx, stored.ID)
		if err != nil {
			return apperr.Storage(err, "consume refresh token")
		}
		if !consumed {
			return ErrInvalidOrExpiredToken
		}

		var user entities.User
		if err := tx.First(&user, "id = ?", stored.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidOrExpiredToken
			}
			return apperr.Storage(err, "load user")
		}

		pair, err = s.issueTokens(ctx, repo, &user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// GetUserByID returns the user summary, or nil when the user does not exist.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*library.UserProfile, error) {
	var user entities.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err, "load user")
	}
	return s.profile(ctx, &user)
}

// ParseSessionToken validates a bearer token and returns its claims.
func (s *Service) ParseSessionToken(token string) (*Claims, error) {
	return s.issuer.Parse(token)
}

func (s *Service) authResponse(ctx context.Context, user *entities.User) (*AuthResponse, error) {
	pair, err := s.issueTokens(ctx, s.tokens, user)
	if err != nil {
		return nil, err
	}
	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Token:        pair.Token,
		RefreshToken: pair.RefreshToken,
		User:         profile,
	}, nil
}

func (s *Service) issueTokens(ctx context.Context, repo *tokens.Repository, user *entities.User) (*TokenPair, error) {
	sessionToken, err := s.issuer.Issue(user)
	if err != nil {
		return nil, apperr.Storage(err, "issue session token")
	}

	plaintext, hash, err := GenerateRefreshToken()
	if err != nil {
		return nil, apperr.Storage(err, "generate refresh token")
	}

	if err := repo.Create(ctx, &entities.RefreshToken{
		TokenHash: hash,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.config.RefreshTokenTTL),
	}); err != nil {
		return nil, apperr.Storage(err, "store refresh token")
	}

	return &TokenPair{Token: sessionToken, RefreshToken: plaintext}, nil
}

func (s *Service) profile(ctx context.Context, user *entities.User) (*library.UserProfile, error) {
	var stats library.ReadingStats
	if s.stats != nil {
		var err error
		if stats, err = s.stats.ComputeReadingStats(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return library.NewUserProfile(user, stats), nil
}

func (s *Service) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&entities.User{}).Where(query, args...).Count(&count).Error; err != nil {
		return false, apperr.Storage(err, "check existing user")
	}
	return count > 0, nil
}
