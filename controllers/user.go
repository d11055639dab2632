package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"masivo-tech/logger"
	"masivo-tech/models"
	"masivo-tech/store"
	"masivo-tech/utils"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"go.uber.org/zap"
)

const verificationTokenBytes = 32

// UserController handles accounts and sign-in
type UserController struct {
	Users         store.UserRepository
	Email         *utils.EmailService
	GoogleEnabled bool

	completeAuth func(http.ResponseWriter, *http.Request) (goth.User, error)
	beginAuth    func(http.ResponseWriter, *http.Request)
}

// NewUserController creates a new UserController
func NewUserController(users store.UserRepository, email *utils.EmailService, googleEnabled bool) *UserController {
	return &UserController{
		Users:         users,
		Email:         email,
		GoogleEnabled: googleEnabled,
		completeAuth:  gothic.CompleteUserAuth,
		beginAuth:     gothic.BeginAuthHandler,
	}
}

// ConfigureGoogle registers the Google provider with goth. The OAuth state
// is kept in store.
func ConfigureGoogle(store sessions.Store, clientID, secret, baseURL string) {
	gothic.Store = store
	goth.UseProviders(google.New(clientID, secret, strings.TrimRight(baseURL, "/")+"/auth/google/callback", "email", "profile"))
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,max=150"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

// Register handles user registration
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if fields, err := utils.FieldErrors(req); err != nil || len(fields) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fields})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}
	token, err := utils.RandomToken(verificationTokenBytes)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error generating verification token")
		return
	}

	user := &models.User{
		Username:          req.Username,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		Password:          hash,
		Role:              models.RoleUser,
		VerificationToken: token,
		CreatedAt:         time.Now(),
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	err = uc.Users.Create(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		respondError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("user creation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	if err := uc.Email.SendVerificationEmail(ctx, user.Email, token); err != nil {
		logger.FromContext(ctx).Error("verification email failed", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error sending verification email")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "User registered successfully. Please check your email to verify your account.",
	})
}

// VerifyEmail handles email verification
func (uc *UserController) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusBadRequest, "Verification token missing")
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	user, err := uc.Users.FindByVerificationToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusBadRequest, "User not found or already verified")
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("verification lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := uc.Users.MarkVerified(ctx, user.ID); err != nil {
		logger.FromContext(ctx).Error("verification update failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error updating user verification status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully. You can now log in."})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user authentication
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var creds loginRequest
	if err := decodeJSON(w, r, &creds); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	user, err := uc.Users.FindByEmail(ctx, creds.Email)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("login lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user.Password == "" || !utils.CheckPassword(user.Password, creds.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsVerified {
		respondError(w, http.StatusUnauthorized, "Email not verified")
		return
	}

	uc.respondToken(w, user)
}

func (uc *UserController) respondToken(w http.ResponseWriter, user *models.User) {
	token, err := utils.GenerateJWT(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error generating token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"token": token, "user": user})
}

func (uc *UserController) currentUser(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, ok := currentUserID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	user, err := uc.Users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	if err != nil {
		logger.FromContext(ctx).Error("user lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Database error")
		return nil, false
	}
	return user, true
}

// GetProfile retrieves the authenticated user's profile
func (uc *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()
	user, ok := uc.currentUser(ctx, w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateProfile updates the name and address of the authenticated user
func (uc *UserController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var profile store.UserProfile
	if err := decodeJSON(w, r, &profile); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	profile.FirstName = strings.TrimSpace(profile.FirstName)
	profile.LastName = strings.TrimSpace(profile.LastName)
	if fields, err := utils.FieldErrors(profile); err != nil || len(fields) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fields})
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	user, ok := uc.currentUser(ctx, w, r)
	if !ok {
		return
	}
	if err := uc.Users.UpdateProfile(ctx, user.ID, profile); err != nil {
		logger.FromContext(ctx).Error("profile update failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error updating profile")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Tu perfil ha sido actualizado exitosamente!"})
}

type passwordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// ChangePassword replaces the password after checking the current one
func (uc *UserController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if fields, err := utils.FieldErrors(req); err != nil || len(fields) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fields})
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	user, ok := uc.currentUser(ctx, w, r)
	if !ok {
		return
	}
	if user.Password == "" || !utils.CheckPassword(user.Password, req.OldPassword) {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": map[string]string{"old_password": "La contraseña actual es incorrecta."},
		})
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}
	if err := uc.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		logger.FromContext(ctx).Error("password update failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error updating password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Tu contraseña ha sido cambiada exitosamente!"})
}

// DeleteAccount removes the authenticated user
func (uc *UserController) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	err := uc.Users.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("account deletion failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error deleting account")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Tu cuenta ha sido eliminada exitosamente."})
}

// BeginSocialAuth redirects to the provider's consent page
func (uc *UserController) BeginSocialAuth(w http.ResponseWriter, r *http.Request) {
	if !uc.GoogleEnabled {
		respondError(w, http.StatusServiceUnavailable, "Social login is not configured")
		return
	}
	uc.beginAuth(w, r)
}

// SocialCallback completes the provider flow and returns a token for the
// matching account, creating it on first sign-in
func (uc *UserController) SocialCallback(w http.ResponseWriter, r *http.Request) {
	if !uc.GoogleEnabled {
		respondError(w, http.StatusServiceUnavailable, "Social login is not configured")
		return
	}

	gu, err := uc.completeAuth(w, r)
	if err != nil {
		logger.FromContext(r.Context()).Warn("social login failed", zap.Error(err))
		respondError(w, http.StatusUnauthorized, "Social login failed")
		return
	}
	if gu.Email == "" || !emailVerified(gu) {
		respondError(w, http.StatusUnauthorized, "Provider did not return a verified email")
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	user, err := uc.socialUser(ctx, gu)
	if err != nil {
		logger.FromContext(ctx).Error("social account failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error creating user")
		return
	}
	uc.respondToken(w, user)
}

// emailVerified reports whether the provider vouches for the email.
// Google's userinfo endpoints name the flag differently.
func emailVerified(gu goth.User) bool {
	for _, key := range []string{"email_verified", "verified_email"} {
		switch v := gu.RawData[key].(type) {
		case bool:
			return v
		case string:
			return strings.EqualFold(v, "true")
		}
	}
	return false
}

// socialUser finds the account holding the provider email or creates a
// verified one. An unverified account was never proven to belong to the
// email owner, so its password is discarded before it is verified.
func (uc *UserController) socialUser(ctx context.Context, gu goth.User) (*models.User, error) {
	user, err := uc.Users.FindByEmail(ctx, gu.Email)
	if err == nil {
		if !user.IsVerified {
			if err := uc.Users.UpdatePassword(ctx, user.ID, ""); err != nil {
				return nil, err
			}
			if err := uc.Users.MarkVerified(ctx, user.ID); err != nil {
				return nil, err
			}
			user.Password, user.VerificationToken, user.IsVerified = "", "", true
		}
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	username, _, _ := strings.Cut(gu.Email, "@")
	user = &models.User{
		Username:   username,
		FirstName:  gu.FirstName,
		LastName:   gu.LastName,
		Email:      strings.ToLower(gu.Email),
		Role:       models.RoleUser,
		IsVerified: true,
		Provider:   gu.Provider,
		CreatedAt:  time.Now(),
	}
	if err := uc.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
