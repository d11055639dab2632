package utils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"masivo-tech/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/sendgrid/sendgrid-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT("abc", "ana@example.com", "admin")
	require.NoError(t, err)

	claims, err := ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), time.Unix(claims.ExpiresAt, 0), time.Minute)
}

func TestParseJWTRejects(t *testing.T) {
	_, err := ParseJWT("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email:          "ana@example.com",
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Hour).Unix()},
	})
	signed, err := expired.SignedString(JwtKey)
	require.NoError(t, err)
	_, err = ParseJWT(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Email: "x"}).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = ParseJWT(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(16)
	require.NoError(t, err)
	b, err := RandomToken(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

type sentMail struct {
	from, to, subject, html, text string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, from, to, subject, htmlBody, textBody string) error {
	m.sent = append(m.sent, sentMail{from, to, subject, htmlBody, textBody})
	return m.err
}

func TestSendVerificationEmail(t *testing.T) {
	m := &recordingMailer{}
	es := NewEmailServiceWith(m, EmailOptions{Sender: "no-reply@masivotech.com", BaseURL: "https://masivotech.test/"})

	require.NoError(t, es.SendVerificationEmail(context.Background(), "ana@example.com", "tok123"))
	require.Len(t, m.sent, 1)
	assert.Equal(t, "no-reply@masivotech.com", m.sent[0].from)
	assert.Equal(t, "ana@example.com", m.sent[0].to)
	assert.Contains(t, m.sent[0].html, "https://masivotech.test/verify-email?token=tok123")
}

func TestSendOrderConfirmationEmail(t *testing.T) {
	m := &recordingMailer{}
	es := NewEmailServiceWith(m, EmailOptions{Sender: "ventas@masivotech.com"})
	order := &models.Order{
		ID:           primitive.NewObjectID(),
		FirstName:    "Ana <b>",
		Email:        "ana@example.com",
		Items:        []models.OrderItem{{ProductName: "Redragon Kumara", Price: decimal.NewFromInt(38999), Quantity: 2}},
		ShippingCost: decimal.NewFromInt(1500),
		Total:        decimal.NewFromInt(79498),
	}

	require.NoError(t, es.SendOrderConfirmationEmail(context.Background(), order))
	mail := m.sent[0]
	assert.Equal(t, "ana@example.com", mail.to)
	assert.Contains(t, mail.subject, order.ID.Hex())
	assert.Contains(t, mail.html, "Redragon Kumara x2: $77.998,00")
	assert.Contains(t, mail.html, "$79.498,00")
	assert.Contains(t, mail.html, "Ana &lt;b&gt;")
	assert.Contains(t, mail.text, "Total: $79.498,00")
}

func TestSendContactMessage(t *testing.T) {
	m := &recordingMailer{}
	es := NewEmailServiceWith(m, EmailOptions{Sender: "no-reply@masivotech.com", ContactAddress: "info@masivotech.com"})

	err := es.SendContactMessage(context.Background(), ContactMessage{Name: "Ana", Email: "ana@example.com", Subject: "Stock", Message: "¿Tienen G502?"})
	require.NoError(t, err)
	assert.Equal(t, "info@masivotech.com", m.sent[0].to)
	assert.Equal(t, "Contacto: Stock", m.sent[0].subject)
}

func TestSendEmailWrapsError(t *testing.T) {
	es := NewEmailServiceWith(&recordingMailer{err: errors.New("smtp down")}, EmailOptions{})
	err := es.SendEmail(context.Background(), "a@b.c", "s", "h", "t")
	assert.EqualError(t, err, "failed to send email: smtp down")
}

func TestNewEmailServiceSelectsProvider(t *testing.T) {
	log := zap.NewNop()
	assert.IsType(t, &PostmarkMailer{}, NewEmailService(EmailOptions{PostmarkToken: "pm", SendGridKey: "sg"}, log).mailer)
	assert.IsType(t, &SendGridMailer{}, NewEmailService(EmailOptions{SendGridKey: "sg"}, log).mailer)
	assert.IsType(t, &LogMailer{}, NewEmailService(EmailOptions{}, log).mailer)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.Send(context.Background(), "a@b.c", "d@e.f", "Hola", "<p>x</p>", "x"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "d@e.f", logs.All()[0].ContextMap()["to"])
}

func TestSendGridMailer(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	req := sendgrid.GetRequest("sg-key", "/v3/mail/send", srv.URL)
	req.Method = http.MethodPost
	m := &SendGridMailer{client: &sendgrid.Client{Request: req}}

	require.NoError(t, m.Send(context.Background(), "no-reply@masivotech.com", "ana@example.com", "Hola", "<p>hola</p>", "hola"))
	assert.Equal(t, "Hola", body["subject"])
}

func TestSendGridMailerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	req := sendgrid.GetRequest("bad", "/v3/mail/send", srv.URL)
	req.Method = http.MethodPost
	m := &SendGridMailer{client: &sendgrid.Client{Request: req}}

	assert.Error(t, m.Send(context.Background(), "a@b.c", "d@e.f", "s", "h", "t"))
}

type contactForm struct {
	Name  string `json:"nombre" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func TestFieldErrors(t *testing.T) {
	fields, err := FieldErrors(contactForm{Email: "bad"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"nombre": "Este campo es obligatorio.",
		"email":  "Ingresá un email válido.",
	}, fields)

	fields, err = FieldErrors(contactForm{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Nil(t, fields)
}
