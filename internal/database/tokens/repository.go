// Package tokens persists refresh tokens.
//
// Tokens are looked up by the SHA-256 hash of their value; the raw value
// never reaches the database.
//
// # Usage
//
//	repo := tokens.NewRepository(db)
//	token, err := repo.FindValid(ctx, hash, time.Now())
//	purged, err := repo.DeleteExpired(ctx, time.Now())
package tokens

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ivyscans/api/internal/entities"
)

// Repository handles refresh token database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new refresh token repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create stores a new refresh token.
func (r *Repository) Create(ctx context.Context, token *entities.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindValid returns the token with the given hash that has not expired at now.
// Returns gorm.ErrRecordNotFound otherwise.
func (r *Repository) FindValid(ctx context.Context, tokenHash string, now time.Time) (*entities.RefreshToken, error) {
	var token entities.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", tokenHash, now).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Consume deletes the token by ID and reports whether this call removed it.
// A false result means another request consumed it first.
func (r *Repository) Consume(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.RefreshToken{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteForUser removes every refresh token of a user.
func (r *Repository) DeleteForUser(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&entities.RefreshToken{})
	return result.RowsAffected, result.Error
}

// DeleteExpired removes tokens whose expiry is at or before now.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&entities.RefreshToken{})
	return result.RowsAffected, result.Error
}

// CountForUser returns the number of stored tokens of a user.
func (r *Repository) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.RefreshToken{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
