package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"masivo-tech/models"
	"masivo-tech/store/storetest"
	"masivo-tech/utils"

	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registerBody = `{"username":"ana","first_name":"Ana","last_name":"García","email":" Ana@Example.com ","password":"s3cret-pass"}`

func newUserController(googleEnabled bool) (*UserController, *storetest.Users, *recordingMailer) {
	users := storetest.NewUsers()
	mailer := newRecordingMailer()
	return NewUserController(users, emailService(mailer), googleEnabled), users, mailer
}

func verifiedUser(t *testing.T, users *storetest.Users, role string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("s3cret-pass")
	require.NoError(t, err)
	u := &models.User{Username: "ana", Email: "ana@example.com", Password: hash, Role: role, IsVerified: true}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestRegisterAndVerify(t *testing.T) {
	uc, users, mailer := newUserController(false)
	ctx := context.Background()

	rec := (&browser{}).do(uc.Register, post("/register", registerBody, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	user, err := users.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.False(t, user.IsVerified)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "s3cret-pass", user.Password)
	require.NotEmpty(t, user.VerificationToken)

	m := <-mailer.sent
	assert.Equal(t, "ana@example.com", m.to)
	assert.Contains(t, m.text, "https://masivotech.test/verify-email?token="+user.VerificationToken)

	rec = (&browser{}).do(uc.Login, post("/login", `{"email":"ana@example.com","password":"s3cret-pass"}`, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Email not verified", decode(t, rec)["error"])

	rec = (&browser{}).do(uc.VerifyEmail, get("/verify-email?token="+user.VerificationToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = (&browser{}).do(uc.VerifyEmail, get("/verify-email?token="+user.VerificationToken, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = (&browser{}).do(uc.Login, post("/login", `{"email":"ana@example.com","password":"s3cret-pass"}`, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	claims, err := utils.ParseJWT(decode(t, rec)["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterRejections(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		uc, users, _ := newUserController(false)
		verifiedUser(t, users, models.RoleUser)
		rec := (&browser{}).do(uc.Register, post("/register", registerBody, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "User already exists", decode(t, rec)["error"])
	})

	t.Run("short password", func(t *testing.T) {
		uc, _, _ := newUserController(false)
		rec := (&browser{}).do(uc.Register, post("/register", `{"username":"ana","email":"ana@example.com","password":"short"}`, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["errors"], "password")
	})

	t.Run("mail failure", func(t *testing.T) {
		uc, _, mailer := newUserController(false)
		mailer.err = errors.New("smtp down")
		rec := (&browser{}).do(uc.Register, post("/register", registerBody, nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		uc, _, _ := newUserController(false)
		rec := (&browser{}).do(uc.VerifyEmail, get("/verify-email", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginWrongPassword(t *testing.T) {
	uc, users, _ := newUserController(false)
	verifiedUser(t, users, models.RoleUser)

	rec := (&browser{}).do(uc.Login, post("/login", `{"email":"ana@example.com","password":"nope"}`, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = (&browser{}).do(uc.Login, post("/login", `{"email":"nadie@example.com","password":"nope"}`, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileLifecycle(t *testing.T) {
	uc, users, _ := newUserController(false)
	user := verifiedUser(t, users, models.RoleUser)
	b := &browser{claims: claimsFor(user.ID, models.RoleUser)}
	ctx := context.Background()

	rec := b.do(uc.GetProfile, get("/profile", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@example.com", decode(t, rec)["email"])

	rec = b.do(uc.UpdateProfile, call{method: http.MethodPut, target: "/profile",
		body: `{"first_name":" Ana ","last_name":"García","address":{"street":"Corrientes 1234","city":"CABA","postal_code":"1043"}}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.FirstName)
	assert.Equal(t, "1043", got.Address.PostalCode)

	rec = b.do(uc.ChangePassword, post("/profile/password", `{"old_password":"wrong","new_password":"otra-clave-1"}`, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.do(uc.ChangePassword, post("/profile/password", `{"old_password":"s3cret-pass","new_password":"otra-clave-1"}`, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got, err = users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword(got.Password, "otra-clave-1"))

	rec = b.do(uc.DeleteAccount, call{method: http.MethodDelete, target: "/profile"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = b.do(uc.GetProfile, get("/profile", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileRequiresClaims(t *testing.T) {
	uc, _, _ := newUserController(false)
	rec := (&browser{}).do(uc.GetProfile, get("/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSocialLoginDisabled(t *testing.T) {
	uc, _, _ := newUserController(false)
	vars := map[string]string{"provider": "google"}

	assert.Equal(t, http.StatusServiceUnavailable, (&browser{}).do(uc.BeginSocialAuth, get("/auth/google", vars)).Code)
	assert.Equal(t, http.StatusServiceUnavailable, (&browser{}).do(uc.SocialCallback, get("/auth/google/callback", vars)).Code)
}

func googleUser(email string, verified bool) goth.User {
	return goth.User{
		Provider:  "google",
		Email:     email,
		FirstName: "Lucía",
		LastName:  "Pérez",
		RawData:   map[string]interface{}{"email": email, "email_verified": verified},
	}
}

func TestSocialCallbackCreatesAccount(t *testing.T) {
	uc, users, _ := newUserController(true)
	uc.completeAuth = func(http.ResponseWriter, *http.Request) (goth.User, error) {
		return googleUser("Lucia.Perez@gmail.com", true), nil
	}
	vars := map[string]string{"provider": "google"}

	rec := (&browser{}).do(uc.SocialCallback, get("/auth/google/callback", vars))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	claims, err := utils.ParseJWT(decode(t, rec)["token"].(string))
	require.NoError(t, err)

	user, err := users.FindByEmail(context.Background(), "lucia.perez@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "Lucia.Perez", user.Username)
	assert.Equal(t, "Lucía", user.FirstName)
	assert.True(t, user.IsVerified)
	assert.Equal(t, user.ID.Hex(), claims.UserID)

	rec = (&browser{}).do(uc.SocialCallback, get("/auth/google/callback", vars))
	require.Equal(t, http.StatusOK, rec.Code)
	claims2, err := utils.ParseJWT(decode(t, rec)["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, claims2.UserID)
}

func TestSocialCallbackClaimsUnverifiedAccount(t *testing.T) {
	uc, users, _ := newUserController(true)
	ctx := context.Background()
	hash, err := utils.HashPassword("squatter-pass")
	require.NoError(t, err)
	squatter := &models.User{Username: "squatter", Email: "lucia@gmail.com", Password: hash, VerificationToken: "tok", Role: models.RoleUser}
	require.NoError(t, users.Create(ctx, squatter))

	uc.completeAuth = func(http.ResponseWriter, *http.Request) (goth.User, error) {
		return googleUser("lucia@gmail.com", true), nil
	}
	rec := (&browser{}).do(uc.SocialCallback, get("/auth/google/callback", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := users.FindByEmail(ctx, "lucia@gmail.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Empty(t, stored.Password)
	assert.Empty(t, stored.VerificationToken)

	rec = (&browser{}).do(uc.Login, post("/login", `{"email":"lucia@gmail.com","password":"squatter-pass"}`, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSocialCallbackKeepsVerifiedPassword(t *testing.T) {
	uc, users, _ := newUserController(true)
	owner := verifiedUser(t, users, models.RoleUser)

	uc.completeAuth = func(http.ResponseWriter, *http.Request) (goth.User, error) {
		return googleUser(owner.Email, true), nil
	}
	rec := (&browser{}).do(uc.SocialCallback, get("/auth/google/callback", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = (&browser{}).do(uc.Login, post("/login", `{"email":"ana@example.com","password":"s3cret-pass"}`, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSocialCallbackRejectsUnverifiedProviderEmail(t *testing.T) {
	uc, users, _ := newUserController(true)
	owner := verifiedUser(t, users, models.RoleUser)

	for _, gu := range []goth.User{
		googleUser(owner.Email, false),
		{Provider: "google", Email: owner.Email},
	} {
		gu := gu
		uc.completeAuth = func(http.ResponseWriter, *http.Request) (goth.User, error) { return gu, nil }
		rec := (&browser{}).do(uc.SocialCallback, get("/auth/google/callback", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestEmailVerified(t *testing.T) {
	assert.True(t, emailVerified(goth.User{RawData: map[string]interface{}{"verified_email": true}}))
	assert.True(t, emailVerified(goth.User{RawData: map[string]interface{}{"email_verified": "true"}}))
	assert.False(t, emailVerified(goth.User{RawData: map[string]interface{}{"email_verified": "false"}}))
	assert.False(t, emailVerified(goth.User{}))
}

func TestSocialCallbackFailure(t *testing.T) {
	uc, _, _ := newUserController(true)
	uc.completeAuth = func(http.ResponseWriter, *http.Request) (goth.User, error) {
		return goth.User{}, errors.New("state mismatch")
	}
	rec := (&browser{}).do(uc.SocialCallback, get("/auth/google/callback", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBeginSocialAuthDelegates(t *testing.T) {
	uc, _, _ := newUserController(true)
	called := false
	uc.beginAuth = func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusTemporaryRedirect)
	}
	rec := (&browser{}).do(uc.BeginSocialAuth, get("/auth/google", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}
