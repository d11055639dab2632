package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"masivo-tech/logger"
	"masivo-tech/middleware"

	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	dbTimeout    = 5 * time.Second
	maxBodyBytes = 1 << 20
)

var errEmptyBody = errors.New("empty body")

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a JSON body into v. An empty body yields errEmptyBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

func dbContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), dbTimeout)
}

// currentUserID returns the authenticated user's id, if any
func currentUserID(r *http.Request) (primitive.ObjectID, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// Sessions loads and saves the storefront session
type Sessions struct {
	Store sessions.Store
	Name  string
}

// Get returns the request session. A session that cannot be decoded is
// replaced by a fresh one.
func (s *Sessions) Get(r *http.Request) *sessions.Session {
	sess, err := s.Store.Get(r, s.Name)
	if err != nil {
		logger.FromContext(r.Context()).Warn("discarding unreadable session", zap.Error(err))
	}
	return sess
}

// Save persists sess, logging failures
func (s *Sessions) Save(w http.ResponseWriter, r *http.Request, sess *sessions.Session) bool {
	if err := sess.Save(r, w); err != nil {
		logger.FromContext(r.Context()).Error("failed to save session", zap.Error(err))
		return false
	}
	return true
}
