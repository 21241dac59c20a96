package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"akshaya-auth/internal/models"
	"akshaya-auth/internal/otp"
	"akshaya-auth/internal/repository/scylla"
	"akshaya-auth/internal/service"
	"akshaya-auth/internal/util"
)

// AuthHandler exposes the OTP flows and the authenticated profile
// endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

type requestOTPRequest struct {
	Phone string `json:"phone"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type verifyOTPResponse struct {
	UserID string       `json:"user_id"`
	Token  string       `json:"token"`
	User   *models.User `json:"user"`
}

type updateProfileRequest struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// RequestOTP handles POST /api/auth/request-otp. The response is an
// acknowledgement only; it never carries the code, and notifier outcome
// does not change it.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	if err := h.authService.RequestOTP(r.Context(), req.Phone, ClientIdentity(r)); err != nil {
		h.respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "OTP sent successfully",
	})
}

// VerifyOTP handles POST /api/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	user, credential, err := h.authService.VerifyOTP(r.Context(), req.Phone, req.OTP, ClientIdentity(r))
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "login successful",
		Data: verifyOTPResponse{
			UserID: user.UserID,
			Token:  credential,
			User:   user,
		},
	})
}

// GetProfile handles GET /api/user/profile.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing or malformed credentials")
		return
	}

	user, err := h.authService.GetProfile(r.Context(), userID)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    user,
	})
}

// UpdateProfile handles PUT /api/user/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing or malformed credentials")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}
	if req.Name == "" || req.Language == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "name and language are required")
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), userID, req.Name, req.Language)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "profile updated",
		Data:    user,
	})
}

// respondAuthError maps service errors to their stable wire codes.
// Clients distinguish outcomes by the error code, never the message.
func (h *AuthHandler) respondAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, util.ErrInvalidPhone):
		respondError(w, http.StatusBadRequest, "invalid_phone", "phone number is not valid")
	case errors.Is(err, otp.ErrNotFound):
		respondError(w, http.StatusBadRequest, "otp_not_found", "no OTP was requested for this phone")
	case errors.Is(err, otp.ErrExpired):
		respondError(w, http.StatusBadRequest, "otp_expired", "OTP has expired, request a new one")
	case errors.Is(err, otp.ErrLockedOut):
		respondError(w, http.StatusBadRequest, "otp_locked_out", "too many attempts, request a new OTP")
	case errors.Is(err, otp.ErrInvalid):
		respondError(w, http.StatusBadRequest, "otp_invalid", "incorrect OTP")
	case errors.Is(err, scylla.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user_not_found", "user does not exist")
	case errors.Is(err, service.ErrDirectoryFailure):
		respondError(w, http.StatusBadGateway, "directory_failure", "user directory is unavailable")
	default:
		util.Error("Unhandled auth error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		util.Error("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, Response{
		Success: false,
		Error:   code,
		Message: message,
	})
}
