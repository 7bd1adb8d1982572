package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myora/server/internal/middleware"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/notify"
	"github.com/myora/server/internal/repo"
	"github.com/myora/server/internal/verification"
)

type staticIdentity struct {
	user model.User
}

func (i *staticIdentity) Resolve(*http.Request) (model.User, error) {
	return i.user, nil
}

type memVerificationRepo struct {
	records map[string]model.VerificationCode
}

func (m *memVerificationRepo) key(userID uuid.UUID, contact string) string {
	return userID.String() + "|" + contact
}

func (m *memVerificationRepo) Upsert(_ context.Context, code *model.VerificationCode) error {
	if m.records == nil {
		m.records = map[string]model.VerificationCode{}
	}
	m.records[m.key(code.UserID, code.Contact)] = *code
	return nil
}

func (m *memVerificationRepo) Get(_ context.Context, userID uuid.UUID, contact string) (model.VerificationCode, error) {
	record, ok := m.records[m.key(userID, contact)]
	if !ok {
		return model.VerificationCode{}, repo.ErrCodeNotFound
	}
	return record, nil
}

func (m *memVerificationRepo) MarkVerified(_ context.Context, userID uuid.UUID, contact string) error {
	record, ok := m.records[m.key(userID, contact)]
	if !ok {
		return repo.ErrCodeNotFound
	}
	record.Verified = true
	m.records[m.key(userID, contact)] = record
	return nil
}

type stubUserRepo struct {
	verified []string
}

func (s *stubUserRepo) Create(context.Context, string, string, string) (model.User, error) {
	return model.User{}, fmt.Errorf("not implemented")
}

func (s *stubUserRepo) GetByID(context.Context, uuid.UUID) (model.User, error) {
	return model.User{}, fmt.Errorf("not implemented")
}

func (s *stubUserRepo) GetByEmail(context.Context, string) (model.User, error) {
	return model.User{}, fmt.Errorf("not implemented")
}

func (s *stubUserRepo) ListIDs(context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

func (s *stubUserRepo) UpdateProfile(context.Context, uuid.UUID, repo.ProfileUpdate) (model.User, error) {
	return model.User{}, fmt.Errorf("not implemented")
}

func (s *stubUserRepo) MarkContactVerified(_ context.Context, _ uuid.UUID, kind, contact string) error {
	s.verified = append(s.verified, kind+":"+contact)
	return nil
}

func newVerificationTestHandler(t *testing.T) (http.Handler, http.Handler) {
	t.Helper()
	dispatcher := &notify.Dispatcher{
		SMS:   &notify.ConsoleSender{Channel: "SMS"},
		Email: &notify.ConsoleSender{Channel: "EMAIL"},
	}
	service := verification.NewService(&memVerificationRepo{}, &stubUserRepo{}, dispatcher, true)
	h := NewVerificationHandler(service)

	identity := &staticIdentity{user: model.User{ID: uuid.New(), Email: "v@example.com"}}
	wrap := middleware.AuthMiddleware(identity)
	return wrap(http.HandlerFunc(h.HandleSend)), wrap(http.HandlerFunc(h.HandleCheck))
}

func postJSON(t *testing.T, handler http.Handler, body interface{}) (int, json.RawMessage) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env.Data
}

func TestVerificationCheckRequiresExactCode(t *testing.T) {
	send, check := newVerificationTestHandler(t)

	status, data := postJSON(t, send, map[string]string{"contact": "+4915112345678", "type": "phone"})
	require.Equal(t, http.StatusOK, status)
	var sent struct {
		DevCode string `json:"devCode"`
	}
	require.NoError(t, json.Unmarshal(data, &sent))
	require.Len(t, sent.DevCode, 6)

	// Padded submissions are not normalized into a match
	var checked struct {
		Verified bool `json:"verified"`
	}
	for _, padded := range []string{" " + sent.DevCode, sent.DevCode + " ", " " + sent.DevCode + " ", "\t" + sent.DevCode} {
		status, data = postJSON(t, check, map[string]string{
			"contact": "+4915112345678", "code": padded, "type": "phone",
		})
		require.Equal(t, http.StatusOK, status)
		require.NoError(t, json.Unmarshal(data, &checked))
		assert.False(t, checked.Verified, "code %q must not verify", padded)
	}

	status, data = postJSON(t, check, map[string]string{
		"contact": "+4915112345678", "code": sent.DevCode, "type": "phone",
	})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &checked))
	assert.True(t, checked.Verified)
}
