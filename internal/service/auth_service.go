package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"akshaya-auth/internal/events"
	"akshaya-auth/internal/models"
	"akshaya-auth/internal/notify"
	"akshaya-auth/internal/otp"
	"akshaya-auth/internal/repository/scylla"
	"akshaya-auth/internal/token"
	"akshaya-auth/internal/util"
)

var ErrDirectoryFailure = errors.New("user directory failure")

// New users created on first successful verification
const (
	defaultName     = "User"
	defaultLanguage = "en"
)

// AuthService orchestrates the OTP flows: challenge issue and dispatch,
// verification, directory lookup-or-create, and credential minting.
// Rate limiting sits in front of it as HTTP middleware.
type AuthService struct {
	store     *otp.Store
	directory scylla.Directory
	issuer    token.Issuer
	notifier  notify.Notifier
	publisher *events.Publisher
}

func NewAuthService(store *otp.Store, directory scylla.Directory, issuer token.Issuer, notifier notify.Notifier, publisher *events.Publisher) *AuthService {
	return &AuthService{
		store:     store,
		directory: directory,
		issuer:    issuer,
		notifier:  notifier,
		publisher: publisher,
	}
}

// RequestOTP issues a challenge for phone and dispatches the code out of
// band. The caller always gets an acknowledgement; delivery outcome is
// only logged and published. clientID is carried for the audit stream.
func (s *AuthService) RequestOTP(ctx context.Context, phone, clientID string) error {
	normalized, err := util.ValidatePhone(phone)
	if err != nil {
		return err
	}

	code, err := s.store.Issue(normalized, time.Now())
	if err != nil {
		return fmt.Errorf("failed to issue otp: %w", err)
	}

	// Dispatch after the challenge is stored; never blocks or fails the
	// caller
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.notifier.Send(sendCtx, normalized, code); err != nil {
			util.Error("Failed to send OTP",
				zap.String("phone", notify.MaskPhone(normalized)),
				zap.Error(err))
		}
	}()

	s.publisher.Publish(models.EventOTPRequested, normalized, "", clientID, "")
	return nil
}

// VerifyOTP checks the presented code and, on success, resolves the phone
// to a user (creating one on first login) and mints a bearer credential.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code, clientID string) (*models.User, string, error) {
	normalized, err := util.ValidatePhone(phone)
	if err != nil {
		return nil, "", err
	}

	if err := s.store.Verify(normalized, code, time.Now()); err != nil {
		s.publisher.Publish(models.EventOTPFailed, normalized, "", clientID, err.Error())
		return nil, "", err
	}

	user, err := s.directory.FindByPhone(ctx, normalized)
	if err != nil {
		if !errors.Is(err, scylla.ErrUserNotFound) {
			return nil, "", fmt.Errorf("%w: %v", ErrDirectoryFailure, err)
		}

		user = &models.User{
			Phone:    normalized,
			Name:     defaultName,
			Language: defaultLanguage,
		}
		if err := s.directory.Create(ctx, user); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrDirectoryFailure, err)
		}
	}

	credential, err := s.issuer.Issue(user.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	// Best effort; a failed timestamp write must not undo the login
	if err := s.directory.UpdateLastLogin(ctx, user.UserID, time.Now()); err != nil {
		util.Warn("Failed to record last login",
			zap.String("user_id", user.UserID),
			zap.Error(err))
	}

	s.publisher.Publish(models.EventOTPVerified, normalized, user.UserID, clientID, "")
	s.publisher.Publish(models.EventLoginSucceeded, normalized, user.UserID, clientID, "")

	util.Info("User authenticated",
		zap.String("user_id", user.UserID),
		zap.String("phone", notify.MaskPhone(normalized)))

	return user, credential, nil
}

// GetProfile loads the authenticated user's record.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.directory.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDirectoryFailure, err)
	}
	return user, nil
}

// UpdateProfile changes the mutable profile fields and returns the
// updated record.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, language string) (*models.User, error) {
	if err := s.directory.UpdateProfile(ctx, userID, name, language); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryFailure, err)
	}
	return s.GetProfile(ctx, userID)
}
