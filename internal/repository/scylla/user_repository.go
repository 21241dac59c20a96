package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"akshaya-auth/internal/bucketing"
	"akshaya-auth/internal/models"
	"akshaya-auth/internal/util"
)

// UserRepository implements Directory on ScyllaDB. Users live in the
// users table partitioned by murmur3 bucket; phone lookup goes through
// the phone_to_user table keyed by the SHA-256 phone hash, so raw phone
// numbers never act as partition keys.
type UserRepository struct {
	client  *ScyllaClient
	buckets *bucketing.Manager
}

func NewUserRepository(client *ScyllaClient, buckets *bucketing.Manager) *UserRepository {
	return &UserRepository{
		client:  client,
		buckets: buckets,
	}
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var userBucket int
	var userID string

	query := r.client.Prepared.GetUserByPhone.WithContext(ctx).Bind(util.PhoneHash(phone))
	if err := r.client.ScanWithRetry(query, &userBucket, &userID); err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrUserNotFound
		}
		util.Error("Failed to look up user by phone", zap.Error(err))
		return nil, fmt.Errorf("failed to look up user by phone: %w", err)
	}

	return r.getByBucketAndID(ctx, userBucket, userID)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	user.UserBucket = r.buckets.UserBucket(user.UserID)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	// Logged batch keeps the lookup table consistent with the main table
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.CreateUser.Statement(),
		user.UserBucket, user.UserID, user.Phone, user.Name,
		user.Language, user.CreatedAt, user.LastLogin)

	batch.Query(r.client.Prepared.CreatePhoneToUser.Statement(),
		util.PhoneHash(user.Phone), user.UserBucket, user.UserID, user.CreatedAt)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create user",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	util.Info("User created",
		zap.String("user_id", user.UserID),
		zap.Int("user_bucket", user.UserBucket))

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return r.getByBucketAndID(ctx, r.buckets.UserBucket(userID), userID)
}

func (r *UserRepository) getByBucketAndID(ctx context.Context, userBucket int, userID string) (*models.User, error) {
	user := &models.User{}
	var lastLogin time.Time

	query := r.client.Prepared.GetUserByID.WithContext(ctx).Bind(userBucket, userID)
	err := r.client.ScanWithRetry(query,
		&user.UserBucket, &user.UserID, &user.Phone, &user.Name,
		&user.Language, &user.CreatedAt, &lastLogin)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrUserNotFound
		}
		util.Error("Failed to get user by ID",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	if !lastLogin.IsZero() {
		user.LastLogin = &lastLogin
	}

	return user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID, name, language string) error {
	query := r.client.Prepared.UpdateUserProfile.WithContext(ctx).
		Bind(name, language, r.buckets.UserBucket(userID), userID)

	if err := r.client.ExecuteWithRetry(query); err != nil {
		util.Error("Failed to update user profile",
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to update user profile: %w", err)
	}

	util.Info("User profile updated", zap.String("user_id", userID))
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	query := r.client.Prepared.UpdateUserLastLogin.WithContext(ctx).
		Bind(at.UTC(), r.buckets.UserBucket(userID), userID)

	if err := r.client.ExecuteWithRetry(query); err != nil {
		util.Error("Failed to update last login",
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

func (r *UserRepository) HealthCheck() error {
	return r.client.HealthCheck()
}
