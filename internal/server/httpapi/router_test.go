package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/docgate/docgate/internal/common"
	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/server/auth"
	"github.com/docgate/docgate/internal/server/config"
	"github.com/docgate/docgate/internal/server/models"
	"github.com/docgate/docgate/internal/server/services"
	"github.com/docgate/docgate/internal/server/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type fakeAccounts struct {
	account *models.Account
	list    []*models.Account
	login   *services.LoginResult
	err     error

	gotEmail   string
	gotDetails string
	gotFilter  models.AccountFilter
	gotID      string
	gotReason  string
	gotActor   models.Identity
}

func (f *fakeAccounts) Register(_ context.Context, email, _, details string) (*models.Account, error) {
	f.gotEmail, f.gotDetails = email, details
	return f.account, f.err
}

func (f *fakeAccounts) Login(_ context.Context, email, _ string) (*services.LoginResult, error) {
	f.gotEmail = email
	return f.login, f.err
}

func (f *fakeAccounts) GetAccount(_ context.Context, id string) (*models.Account, error) {
	f.gotID = id
	return f.account, f.err
}

func (f *fakeAccounts) ListAccounts(_ context.Context, filter models.AccountFilter) ([]*models.Account, error) {
	f.gotFilter = filter
	return f.list, f.err
}

func (f *fakeAccounts) Approve(_ context.Context, id string) (*models.Account, error) {
	f.gotID = id
	return f.account, f.err
}

func (f *fakeAccounts) Reject(_ context.Context, id, reason string) (*models.Account, error) {
	f.gotID, f.gotReason = id, reason
	return f.account, f.err
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, actor models.Identity, id string) error {
	f.gotActor, f.gotID = actor, id
	return f.err
}

type testEnv struct {
	router   *gin.Engine
	codec    *auth.TokenCodec
	accounts *fakeAccounts
	store    *storage.MemoryStore
}

func newTestEnv(t *testing.T, debug bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec := auth.NewTokenCodec("test-secret")
	store := storage.NewMemoryStore()
	accounts := &fakeAccounts{}

	r := NewRouter(Deps{
		Config:    &config.Config{Debug: debug},
		Verifier:  codec,
		Accounts:  accounts,
		Documents: services.NewDocumentService(store, logging.Discard()),
		Logger:    logging.Discard(),
	})
	return &testEnv{router: r, codec: codec, accounts: accounts, store: store}
}

func (e *testEnv) token(t *testing.T, role models.Role, ttl time.Duration) string {
	t.Helper()
	tok, err := e.codec.Issue(models.Identity{SubjectID: "sub-" + string(role), Email: string(role) + "@example.com", Role: role}, ttl)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

type decoded struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Message string `json:"message"`
		Debug   string `json:"debug"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) decoded {
	t.Helper()
	var d decoded
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d), w.Body.String())
	return d
}

func assertFailure(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assert.Equal(t, status, w.Code)
	d := decode(t, w)
	assert.False(t, d.Success)
	require.NotNil(t, d.Error)
	assert.Equal(t, msg, d.Error.Message)
}

func pdf(size int) []byte {
	b := bytes.Repeat([]byte("x"), size)
	copy(b, "%PDF-1.7\n")
	return b
}

// --- gates ---

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t, false)
	valid := env.token(t, models.RoleUser, time.Hour)
	expired := env.token(t, models.RoleUser, -time.Minute)

	tests := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"missing", "", http.StatusUnauthorized, "authorization required"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "malformed authorization"},
		{"empty credential", "Bearer   ", http.StatusUnauthorized, "authorization required"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "token expired"},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := env.do(t, http.MethodGet, "/api/documents", nil, headers)
			assertFailure(t, w, tt.status, tt.msg)
		})
	}

	w := env.do(t, http.MethodGet, "/api/documents", nil, bearer(valid))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_IgnoresQueryToken(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.token(t, models.RoleUser, time.Hour)

	w := env.do(t, http.MethodGet, "/api/documents?token="+tok, nil, nil)
	assertFailure(t, w, http.StatusUnauthorized, "authorization required")
}

func TestRequireRole(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/admin/accounts", nil, bearer(env.token(t, models.RoleUser, time.Hour)))
	assertFailure(t, w, http.StatusForbidden, "admin access required")

	env.accounts.list = []*models.Account{}
	w = env.do(t, http.MethodGet, "/api/admin/accounts", nil, bearer(env.token(t, models.RoleAdmin, time.Hour)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(decode(t, w).Data))
}

func TestOptionalAuth_Gate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	codec := auth.NewTokenCodec("test-secret")
	a := NewAPI(Deps{Config: &config.Config{}, Verifier: codec, Logger: logging.Discard()})

	r := gin.New()
	r.GET("/whoami", a.OptionalAuth(), func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"subject": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject": id.SubjectID, "role": id.Role})
	})

	tok, err := codec.Issue(models.Identity{SubjectID: "u-1", Email: "u@example.com", Role: models.RoleUser}, time.Hour)
	require.NoError(t, err)

	serve := func(target, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := serve("/whoami", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":null}`, w.Body.String())

	w = serve("/whoami?token="+tok, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"u-1","role":"user"}`, w.Body.String())

	w = serve("/whoami", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"u-1","role":"user"}`, w.Body.String())

	w = serve("/whoami?token=bogus", "")
	assertFailure(t, w, http.StatusUnauthorized, "invalid token")
}

func TestStream_OptionalAuth(t *testing.T) {
	env := newTestEnv(t, false)
	data := pdf(1000)
	require.NoError(t, env.store.Write(context.Background(), "brief.pdf", "application/pdf", bytes.NewReader(data), 1000))
	tok := env.token(t, models.RoleUser, time.Hour)

	w := env.do(t, http.MethodGet, "/api/documents/brief.pdf/stream", nil, nil)
	assertFailure(t, w, http.StatusUnauthorized, "authorization required")

	w = env.do(t, http.MethodGet, "/api/documents/brief.pdf/stream?token=bogus", nil, nil)
	assertFailure(t, w, http.StatusUnauthorized, "invalid token")

	w = env.do(t, http.MethodGet, "/api/documents/brief.pdf/stream?token="+env.token(t, models.RoleUser, -time.Minute), nil, nil)
	assertFailure(t, w, http.StatusUnauthorized, "token expired")

	// A bad header is not rescued by a good query token.
	w = env.do(t, http.MethodGet, "/api/documents/brief.pdf/stream?token="+tok, nil, map[string]string{"Authorization": "Token " + tok})
	assertFailure(t, w, http.StatusUnauthorized, "malformed authorization")

	w = env.do(t, http.MethodGet, "/api/documents/brief.pdf/stream?token="+tok, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "inline; filename=brief.pdf", w.Header().Get("Content-Disposition"))

	w = env.do(t, http.MethodGet, "/api/documents/brief.pdf/stream", nil, bearer(tok))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStream_RangesAndErrors(t *testing.T) {
	env := newTestEnv(t, false)
	require.NoError(t, env.store.Write(context.Background(), "r.pdf", "application/pdf", bytes.NewReader(pdf(100)), 100))
	h := bearer(env.token(t, models.RoleUser, time.Hour))

	h["Range"] = "bytes=0-4"
	w := env.do(t, http.MethodGet, "/api/documents/r.pdf/stream", nil, h)
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "%PDF-", w.Body.String())
	assert.Equal(t, "bytes 0-4/100", w.Header().Get("Content-Range"))

	h["Range"] = "bytes=500-"
	w = env.do(t, http.MethodGet, "/api/documents/r.pdf/stream", nil, h)
	assertFailure(t, w, http.StatusRequestedRangeNotSatisfiable, "requested range not satisfiable")
	assert.Equal(t, "bytes */100", w.Header().Get("Content-Range"))

	delete(h, "Range")
	w = env.do(t, http.MethodGet, "/api/documents/missing.pdf/stream", nil, h)
	assertFailure(t, w, http.StatusNotFound, "document not found")
}

// --- auth handlers ---

func TestRegister(t *testing.T) {
	env := newTestEnv(t, false)
	env.accounts.account = &models.Account{ID: "a1", Email: "new@example.com", Role: models.RoleUser, Status: models.StatusPending}

	body := []byte(`{"email":"new@example.com","password":"secret1","registrationDetails":"Reviewer at ACME"}`)
	w := env.do(t, http.MethodPost, "/api/auth/register", body, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	d := decode(t, w)
	assert.True(t, d.Success)
	assert.NotEmpty(t, d.Message)
	var acc map[string]any
	require.NoError(t, json.Unmarshal(d.Data, &acc))
	assert.Equal(t, "pending", acc["status"])
	assert.Equal(t, "user", acc["role"])
	assert.NotContains(t, acc, "passwordHash")
	assert.Equal(t, "Reviewer at ACME", env.accounts.gotDetails)

	env.accounts.err = common.NewError(common.ErrorConflict, "email already registered")
	w = env.do(t, http.MethodPost, "/api/auth/register", body, nil)
	assertFailure(t, w, http.StatusConflict, "email already registered")

	w = env.do(t, http.MethodPost, "/api/auth/register", []byte(`{`), nil)
	assertFailure(t, w, http.StatusBadRequest, "invalid request body")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, false)
	exp := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	env.accounts.login = &services.LoginResult{
		Token:     "tok",
		ExpiresAt: exp,
		Account:   &models.Account{ID: "a1", Email: "u@example.com", Role: models.RoleUser, Status: models.StatusApproved},
	}

	w := env.do(t, http.MethodPost, "/api/auth/login", []byte(`{"email":"u@example.com","password":"secret1"}`), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
		Account   struct {
			ID string `json:"id"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out))
	assert.Equal(t, "tok", out.Token)
	assert.True(t, exp.Equal(out.ExpiresAt))
	assert.Equal(t, "a1", out.Account.ID)

	env.accounts.err = common.NewError(common.ErrorForbidden, "account pending admin approval")
	w = env.do(t, http.MethodPost, "/api/auth/login", []byte(`{"email":"u@example.com","password":"secret1"}`), nil)
	assertFailure(t, w, http.StatusForbidden, "account pending admin approval")

	w = env.do(t, http.MethodPost, "/api/auth/login", []byte(`{"email":"u@example.com"}`), nil)
	assertFailure(t, w, http.StatusBadRequest, "email and password are required")
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, false)
	env.accounts.account = &models.Account{ID: "sub-user", Email: "user@example.com", Role: models.RoleUser, Status: models.StatusApproved}

	w := env.do(t, http.MethodGet, "/api/auth/me", nil, bearer(env.token(t, models.RoleUser, time.Hour)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sub-user", env.accounts.gotID)
}

// --- admin handlers ---

func TestListAccounts_Filters(t *testing.T) {
	env := newTestEnv(t, false)
	h := bearer(env.token(t, models.RoleAdmin, time.Hour))

	w := env.do(t, http.MethodGet, "/api/admin/accounts?status=pending&role=user", nil, h)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.accounts.gotFilter.Status)
	require.NotNil(t, env.accounts.gotFilter.Role)
	assert.Equal(t, models.StatusPending, *env.accounts.gotFilter.Status)
	assert.Equal(t, models.RoleUser, *env.accounts.gotFilter.Role)

	w = env.do(t, http.MethodGet, "/api/admin/accounts?status=archived", nil, h)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodGet, "/api/admin/accounts?role=root", nil, h)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApproveRejectDelete(t *testing.T) {
	env := newTestEnv(t, false)
	h := bearer(env.token(t, models.RoleAdmin, time.Hour))
	reason := "unknown org"
	env.accounts.account = &models.Account{ID: "a1", Status: models.StatusRejected, RejectionReason: &reason}

	w := env.do(t, http.MethodPost, "/api/admin/accounts/a1/reject", []byte(`{"reason":"unknown org"}`), h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", env.accounts.gotID)
	assert.Equal(t, "unknown org", env.accounts.gotReason)

	w = env.do(t, http.MethodPost, "/api/admin/accounts/a2/reject", nil, h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", env.accounts.gotReason)

	w = env.do(t, http.MethodPost, "/api/admin/accounts/a1/approve", nil, h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "account approved", decode(t, w).Message)

	w = env.do(t, http.MethodDelete, "/api/admin/accounts/a9", nil, h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a9", env.accounts.gotID)
	assert.Equal(t, "sub-admin", env.accounts.gotActor.SubjectID)

	env.accounts.err = common.NewError(common.ErrorForbidden, "you cannot delete your own account")
	w = env.do(t, http.MethodDelete, "/api/admin/accounts/sub-admin", nil, h)
	assertFailure(t, w, http.StatusForbidden, "you cannot delete your own account")

	env.accounts.err = common.NewError(common.ErrorNotFound, "account not found")
	w = env.do(t, http.MethodPost, "/api/admin/accounts/zzz/approve", nil, h)
	assertFailure(t, w, http.StatusNotFound, "account not found")
}

// --- document handlers ---

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUploadListURLDelete(t *testing.T) {
	env := newTestEnv(t, false)
	admin := bearer(env.token(t, models.RoleAdmin, time.Hour))
	user := bearer(env.token(t, models.RoleUser, time.Hour))

	body, ctype := multipartBody(t, "../q1 report.pdf", "application/pdf", pdf(4096))
	upload := func(h map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(body.Bytes()))
		req.Header.Set("Content-Type", ctype)
		for k, v := range h {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	assertFailure(t, upload(user), http.StatusForbidden, "admin access required")

	w := upload(admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc documentDTO
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &doc))
	assert.Equal(t, "q1 report.pdf", doc.Name)
	assert.Equal(t, int64(4096), doc.Size)

	assertFailure(t, upload(admin), http.StatusConflict, "document already exists")

	w = env.do(t, http.MethodGet, "/api/documents", nil, user)
	assert.Equal(t, http.StatusOK, w.Code)
	var docs []documentDTO
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "q1 report.pdf", docs[0].Name)

	w = env.do(t, http.MethodGet, "/api/documents/q1%20report.pdf/url", nil, user)
	assert.Equal(t, http.StatusOK, w.Code)
	var u signedURLDTO
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &u))
	assert.NotEmpty(t, u.URL)
	assert.WithinDuration(t, time.Now().Add(time.Hour), u.ExpiresAt, time.Minute)

	w = env.do(t, http.MethodDelete, "/api/documents/q1%20report.pdf", nil, user)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodDelete, "/api/documents/q1%20report.pdf", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, "/api/documents/q1%20report.pdf", nil, admin)
	assertFailure(t, w, http.StatusNotFound, "document not found")
}

func TestUpload_Rejections(t *testing.T) {
	env := newTestEnv(t, false)
	admin := bearer(env.token(t, models.RoleAdmin, time.Hour))

	body, ctype := multipartBody(t, "photo.png", "image/png", []byte("\x89PNG\r\n\x1a\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", admin["Authorization"])
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assertFailure(t, w, http.StatusBadRequest, "only PDF documents are accepted")

	w = env.do(t, http.MethodPost, "/api/documents", []byte(`{}`), admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteDocuments(t *testing.T) {
	env := newTestEnv(t, false)
	admin := bearer(env.token(t, models.RoleAdmin, time.Hour))
	require.NoError(t, env.store.Write(context.Background(), "a.pdf", "application/pdf", bytes.NewReader(pdf(10)), 10))

	w := env.do(t, http.MethodPost, "/api/documents/delete", []byte(`{"names":[]}`), admin)
	assertFailure(t, w, http.StatusBadRequest, "no documents specified")

	w = env.do(t, http.MethodPost, "/api/documents/delete", []byte(`{"names":["a.pdf","b.pdf",".."]}`), admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"deleted":["a.pdf"],
		"notFound":["b.pdf"],
		"errors":[{"name":"..","reason":"invalid document name"}]
	}`, string(decode(t, w).Data))
}

// --- envelope ---

func TestFail_DebugDetails(t *testing.T) {
	for _, debug := range []bool{false, true} {
		env := newTestEnv(t, debug)
		env.accounts.err = common.Internal(errors.New("db error: connection refused"))

		w := env.do(t, http.MethodPost, "/api/auth/login", []byte(`{"email":"a@b.c","password":"x"}`), nil)
		assertFailure(t, w, http.StatusInternalServerError, "internal error")
		d := decode(t, w)
		if debug {
			assert.Contains(t, d.Error.Debug, "connection refused")
		} else {
			assert.Empty(t, d.Error.Debug)
			assert.NotContains(t, w.Body.String(), "connection refused")
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{common.NewError(common.ErrorInvalidInput, "x"), http.StatusBadRequest},
		{common.ErrTokenExpired, http.StatusUnauthorized},
		{common.NewError(common.ErrorForbidden, "x"), http.StatusForbidden},
		{common.ErrorNotFound, http.StatusNotFound},
		{common.ErrAlreadyExists, http.StatusConflict},
		{common.NewError(common.ErrorRangeNotSatisfiable, "x"), http.StatusRequestedRangeNotSatisfiable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRecoveryAndNoRoute(t *testing.T) {
	env := newTestEnv(t, false)
	env.router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := env.do(t, http.MethodGet, "/panic", nil, nil)
	assertFailure(t, w, http.StatusInternalServerError, "internal error")

	w = env.do(t, http.MethodGet, "/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, strings.HasPrefix(decode(t, w).Error.Message, "no route for GET"))
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := true
	r := NewRouter(Deps{
		Config:   &config.Config{},
		Verifier: auth.NewTokenCodec("k"),
		Logger:   logging.Discard(),
		Health: func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("db down")
		},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, w.Body.String())

	healthy = false
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/healthz", nil, nil)
	generated := w.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)

	w = env.do(t, http.MethodGet, "/healthz", nil, map[string]string{"X-Request-ID": "trace-123"})
	assert.Equal(t, "trace-123", w.Header().Get("X-Request-ID"))
}

func TestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	r := NewRouter(Deps{
		Config:   &config.Config{},
		Verifier: auth.NewTokenCodec("k"),
		Logger:   logging.Discard(),
		Metrics:  m,
	})

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/documents/secret.pdf/url", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/healthz", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/documents/:name/url", "401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docgate_http_requests_total")
	assert.NotContains(t, w.Body.String(), "secret.pdf")
}
