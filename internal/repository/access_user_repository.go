package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/models"
	"github.com/customeros/mxvalidator/internal/tracing"
	"github.com/customeros/mxvalidator/internal/utils"
)

type accessUserRepository struct {
	db *gorm.DB
}

func NewAccessUserRepository(db *gorm.DB) interfaces.AccessUserRepository {
	return &accessUserRepository{db: db}
}

// GetByEmail returns nil without error when no user is registered under email.
func (r *accessUserRepository) GetByEmail(ctx context.Context, email string) (*models.AccessUser, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AccessUserRepository.GetByEmail")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var user models.AccessUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}
	return &user, nil
}

// Upsert registers the user or refreshes name, company and token of an
// existing registration. Verification state is left untouched.
func (r *accessUserRepository) Upsert(ctx context.Context, user *models.AccessUser) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AccessUserRepository.Upsert")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if user == nil || user.Email == "" {
		return ErrInvalidInput
	}

	now := utils.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "company", "verification_token", "updated_at"}),
		}).
		Create(user).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}
	return nil
}

// VerifyByToken marks the unverified user holding token as verified. Returns
// nil without error when no such user exists.
func (r *accessUserRepository) VerifyByToken(ctx context.Context, token string) (*models.AccessUser, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AccessUserRepository.VerifyByToken")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if token == "" {
		return nil, nil
	}

	var user models.AccessUser
	err := r.db.WithContext(ctx).
		Where("verification_token = ? AND is_verified = ?", token, false).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return nil, err
	}

	now := utils.Now()
	result := r.db.WithContext(ctx).
		Model(&models.AccessUser{}).
		Where("id = ? AND is_verified = ?", user.ID, false).
		Updates(map[string]interface{}{
			"is_verified": true,
			"verified_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		tracing.TraceErr(span, errors.Wrap(result.Error, "db error"))
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	tracing.TagEntity(span, user.ID)
	user.IsVerified = true
	user.VerifiedAt = &now
	return &user, nil
}

func (r *accessUserRepository) IsVerified(ctx context.Context, email string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AccessUserRepository.IsVerified")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccessUser{}).
		Where("email = ? AND is_verified = ?", email, true).
		Count(&count).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return false, err
	}
	return count > 0, nil
}
