package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"masivo-tech/middleware"
	"masivo-tech/models"
	"masivo-tech/utils"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var sessionKey = []byte("0123456789abcdef0123456789abcdef")

func newSessions() *Sessions {
	return &Sessions{Store: sessions.NewCookieStore(sessionKey), Name: "test"}
}

// browser replays the session cookie between requests
type browser struct {
	cookies []*http.Cookie
	claims  *utils.Claims
}

type call struct {
	method string
	target string
	body   string
	vars   map[string]string
	header http.Header
}

func (b *browser) do(h http.HandlerFunc, c call) *httptest.ResponseRecorder {
	req := httptest.NewRequest(c.method, c.target, strings.NewReader(c.body))
	for k, v := range c.header {
		req.Header[k] = v
	}
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	if c.vars != nil {
		req = mux.SetURLVars(req, c.vars)
	}
	if b.claims != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, b.claims))
	}

	rec := httptest.NewRecorder()
	h(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		b.cookies = cookies
	}
	return rec
}

func post(target, body string, vars map[string]string) call {
	return call{method: http.MethodPost, target: target, body: body, vars: vars}
}

func get(target string, vars map[string]string) call {
	return call{method: http.MethodGet, target: target, vars: vars}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func product(name string, price int64, stock int, category models.Category) models.Product {
	return models.Product{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: name + " gaming",
		Price:       decimal.NewFromInt(price),
		Category:    category,
		Stock:       stock,
		Available:   true,
	}
}

func claimsFor(id primitive.ObjectID, role string) *utils.Claims {
	return &utils.Claims{UserID: id.Hex(), Email: "ana@example.com", Role: role}
}

// recordingMailer captures sent messages
type recordingMailer struct {
	sent chan mail
	err  error
}

type mail struct {
	to, subject, text string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan mail, 8)}
}

func (m *recordingMailer) Send(_ context.Context, _, to, subject, _, text string) error {
	if m.err != nil {
		return m.err
	}
	m.sent <- mail{to: to, subject: subject, text: text}
	return nil
}

func emailService(m utils.Mailer) *utils.EmailService {
	return utils.NewEmailServiceWith(m, utils.EmailOptions{
		Sender:         "info@masivotech.test",
		ContactAddress: "contacto@masivotech.test",
		BaseURL:        "https://masivotech.test",
	})
}

// jsonLen returns the length of a JSON array body as a JSON number
func jsonLen(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items), rec.Body.String())
	return strconv.Itoa(len(items))
}
