package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formstep/internal/engine"
	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/ident"
	"github.com/roach88/formstep/internal/sink"
	"github.com/roach88/formstep/internal/store"
	"github.com/roach88/formstep/internal/testutil"
	"github.com/roach88/formstep/internal/theme"
)

// recorder collects delivered submissions. failures > 0 makes the next
// deliveries fail.
type recorder struct {
	mu        sync.Mutex
	delivered []store.Submission
	failures  int
}

func (r *recorder) Deliver(_ context.Context, sub store.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("broker unavailable")
	}
	r.delivered = append(r.delivered, sub)
	return nil
}

func (r *recorder) all() []store.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.Submission(nil), r.delivered...)
}

type testEnv struct {
	handler http.Handler
	store   *store.Store
	sink    *recorder
	clock   *testutil.Clock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rec := &recorder{}
	clock := testutil.NewClock()
	srv := New(Config{
		Store:     st,
		Sink:      sink.Fanout{sink.NewStoreSink(st), rec},
		IDs:       ident.NewSequenceGenerator("id"),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		PublicURL: "https://forms.example.com",
		Now:       clock.Now,
	})
	return &testEnv{handler: srv.Handler(), store: st, sink: rec, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		buf = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

// data decodes the {"data": ...} envelope into v.
func data(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env.Error
}

func (e *testEnv) seed(t *testing.T, f *form.Form) {
	t.Helper()
	require.NoError(t, e.store.CreateForm(context.Background(), f))
}

func (e *testEnv) start(t *testing.T, formID string) sessionView {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/forms/"+formID+"/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var v sessionView
	data(t, rr, &v)
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, rr.Body.String())
}

func TestFormLifecycle(t *testing.T) {
	env := newTestEnv(t)

	created := env.do(t, http.MethodPost, "/forms", `{"title":"Signup","status":"draft","questions":[{"id":"name","type":"text","label":"Name","required":true}]}`)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	var resp formResponse
	data(t, created, &resp)
	assert.Equal(t, "id-1", resp.Form.ID, "missing id is generated")

	got := env.do(t, http.MethodGet, "/forms/id-1", nil)
	require.Equal(t, http.StatusOK, got.Code)
	var f form.Form
	data(t, got, &f)
	assert.Equal(t, "Signup", f.Title)
	require.Len(t, f.Questions, 1)

	f.Status = form.StatusPublished
	f.Title = "Signup v2"
	updated := env.do(t, http.MethodPut, "/forms/id-1", f)
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())

	list := env.do(t, http.MethodGet, "/forms?status=published", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var forms []form.Form
	data(t, list, &forms)
	require.Len(t, forms, 1)
	assert.Equal(t, "Signup v2", forms[0].Title)

	drafts := env.do(t, http.MethodGet, "/forms?status=draft", nil)
	data(t, drafts, &forms)
	assert.Empty(t, forms)

	deleted := env.do(t, http.MethodDelete, "/forms/id-1", nil)
	assert.Equal(t, http.StatusNoContent, deleted.Code)

	gone := env.do(t, http.MethodGet, "/forms/id-1", nil)
	assert.Equal(t, http.StatusNotFound, gone.Code)
	assert.Equal(t, "form id-1 not found", errorMessage(t, gone))
}

func TestCreateFormRejections(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("taken", form.StatusDraft))

	tests := []struct {
		name string
		body string
		code int
	}{
		{"empty body", ``, http.StatusBadRequest},
		{"unknown field", `{"id":"f","title":"T","colour":"red"}`, http.StatusBadRequest},
		{"duplicate id", `{"id":"taken","title":"T"}`, http.StatusConflict},
		{"missing title", `{"id":"f","questions":[]}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/forms", tt.body)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
		})
	}
}

func TestCreateFormReportsFindings(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/forms", `{"id":"f","questions":[]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp validationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Findings)
	assert.Equal(t, form.ErrTitleEmpty, resp.Findings[0].Code)
}

func TestUpdateFormPathMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("g", form.StatusDraft))

	rr := env.do(t, http.MethodPut, "/forms/g", testutil.GateForm("other", form.StatusDraft))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	missing := env.do(t, http.MethodPut, "/forms/nope", testutil.GateForm("", form.StatusDraft))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestFormStyle(t *testing.T) {
	env := newTestEnv(t)
	f := testutil.GateForm("g", form.StatusDraft)
	f.Theme.Layout = "compact"
	env.seed(t, f)

	rr := env.do(t, http.MethodGet, "/forms/g/style", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var d theme.Descriptor
	data(t, rr, &d)
	assert.Equal(t, "36rem", d.MaxWidth)
	assert.NotEmpty(t, d.Stylesheet)
}

func TestFormQR(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("live", form.StatusPublished))
	env.seed(t, testutil.GateForm("draft", form.StatusDraft))

	rr := env.do(t, http.MethodGet, "/forms/live/qr", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))

	draft := env.do(t, http.MethodGet, "/forms/draft/qr", nil)
	assert.Equal(t, http.StatusConflict, draft.Code)
}

func TestStartSessionRequiresPublished(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("draft", form.StatusDraft))

	rr := env.do(t, http.MethodPost, "/forms/draft/sessions", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	missing := env.do(t, http.MethodPost, "/forms/nope/sessions", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestSessionCompletesAndDelivers(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("g", form.StatusPublished))

	v := env.start(t, "g")
	assert.Equal(t, "id-1", v.ID)
	assert.Equal(t, []string{"q1"}, v.Step.QuestionIDs())
	assert.False(t, v.Step.CanAdvance)

	blocked := env.do(t, http.MethodPost, "/sessions/id-1/advance", nil)
	require.Equal(t, http.StatusOK, blocked.Code)
	var adv advanceResponse
	data(t, blocked, &adv)
	assert.Equal(t, engine.OutcomeBlocked, adv.Outcome)
	assert.Equal(t, []string{"q1"}, adv.Missing)

	rec := env.do(t, http.MethodPut, "/sessions/id-1/answers/q1", `{"value":"y"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	done := env.do(t, http.MethodPost, "/sessions/id-1/advance", nil)
	require.Equal(t, http.StatusOK, done.Code, done.Body.String())
	data(t, done, &adv)
	assert.Equal(t, engine.OutcomeCompleted, adv.Outcome)
	assert.True(t, adv.Session.Completed)
	assert.Equal(t, "id-2", adv.Session.SubmissionID)

	delivered := env.sink.all()
	require.Len(t, delivered, 1)
	assert.Equal(t, "g", delivered[0].FormID)
	assert.Equal(t, "id-1", delivered[0].SessionID)
	assert.Equal(t, form.Answers{"q1": form.Single("y")}, delivered[0].Answers)
	assert.True(t, delivered[0].SubmittedAt.After(testutil.Epoch))

	subs := env.do(t, http.MethodGet, "/forms/g/submissions", nil)
	require.Equal(t, http.StatusOK, subs.Code)
	var stored []store.Submission
	data(t, subs, &stored)
	require.Len(t, stored, 1)
	assert.Equal(t, "id-2", stored[0].ID)
	assert.True(t, delivered[0].SubmittedAt.Equal(stored[0].SubmittedAt),
		"every sink records the same timestamp: %v vs %v", delivered[0].SubmittedAt, stored[0].SubmittedAt)

	closed := env.do(t, http.MethodPost, "/sessions/id-1/advance", nil)
	data(t, closed, &adv)
	assert.Equal(t, engine.OutcomeClosed, adv.Outcome)
	assert.Len(t, env.sink.all(), 1, "completion delivers once")
}

func TestAdvanceRetriesFailedDelivery(t *testing.T) {
	env := newTestEnv(t)
	env.sink.failures = 1
	f := testutil.GateForm("g", form.StatusPublished)
	f.Questions[0].Required = false
	env.seed(t, f)
	env.start(t, "g")

	failed := env.do(t, http.MethodPost, "/sessions/id-1/advance", nil)
	assert.Equal(t, http.StatusBadGateway, failed.Code)
	assert.Empty(t, env.sink.all())

	var v sessionView
	data(t, env.do(t, http.MethodGet, "/sessions/id-1", nil), &v)
	assert.True(t, v.Completed)
	assert.True(t, v.Pending)

	retried := env.do(t, http.MethodPost, "/sessions/id-1/advance", nil)
	require.Equal(t, http.StatusOK, retried.Code, retried.Body.String())
	var adv advanceResponse
	data(t, retried, &adv)
	assert.Equal(t, engine.OutcomeCompleted, adv.Outcome)
	assert.False(t, adv.Session.Pending)

	delivered := env.sink.all()
	require.Len(t, delivered, 1)
	assert.Equal(t, "id-2", delivered[0].ID, "retry keeps the submission id")
}

func TestSessionBranchingAndRetreat(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("g", form.StatusPublished))
	env.start(t, "g")

	env.do(t, http.MethodPut, "/sessions/id-1/answers/q1", `{"value":"x"}`)
	var adv advanceResponse
	data(t, env.do(t, http.MethodPost, "/sessions/id-1/advance", nil), &adv)
	assert.Equal(t, engine.OutcomeAdvanced, adv.Outcome)
	assert.Equal(t, []string{"q2"}, adv.Session.Step.QuestionIDs())
	assert.True(t, adv.Session.Step.IsLastStep)

	var back retreatResponse
	data(t, env.do(t, http.MethodPost, "/sessions/id-1/retreat", nil), &back)
	assert.True(t, back.Moved)
	assert.Equal(t, []string{"q1"}, back.Session.Step.QuestionIDs())

	data(t, env.do(t, http.MethodPost, "/sessions/id-1/retreat", nil), &back)
	assert.False(t, back.Moved, "retreat at the first step is a no-op")
}

func TestSessionAnswerEdits(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("g", form.StatusPublished))
	env.start(t, "g")

	var v sessionView
	data(t, env.do(t, http.MethodPut, "/sessions/id-1/answers/q1", `{"value":"tags"}`), &v)
	assert.Equal(t, form.Answers{"q1": form.Single("tags")}, v.Answers)

	env.do(t, http.MethodPost, "/sessions/id-1/answers/tags/toggle", `{"option":"b"}`)
	data(t, env.do(t, http.MethodPost, "/sessions/id-1/answers/tags/toggle", `{"option":"a"}`), &v)
	assert.Equal(t, form.Multiple{"b", "a"}, v.Answers["tags"])

	data(t, env.do(t, http.MethodPost, "/sessions/id-1/answers/tags/toggle", `{"option":"b"}`), &v)
	assert.Equal(t, form.Multiple{"a"}, v.Answers["tags"])

	data(t, env.do(t, http.MethodDelete, "/sessions/id-1/answers/q1", nil), &v)
	_, ok := v.Answers["q1"]
	assert.False(t, ok)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"unknown question", http.MethodPut, "/sessions/id-1/answers/nope", `{"value":"a"}`, http.StatusBadRequest},
		{"missing value", http.MethodPut, "/sessions/id-1/answers/q1", `{}`, http.StatusBadRequest},
		{"number value", http.MethodPut, "/sessions/id-1/answers/q1", `{"value":3}`, http.StatusBadRequest},
		{"empty option", http.MethodPost, "/sessions/id-1/answers/tags/toggle", `{"option":""}`, http.StatusBadRequest},
		{"unknown session", http.MethodPut, "/sessions/nope/answers/q1", `{"value":"a"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
		})
	}
}

func TestCompletedSessionRejectsAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("g", form.StatusPublished))
	env.start(t, "g")

	env.do(t, http.MethodPut, "/sessions/id-1/answers/q1", `{"value":"y"}`)
	env.do(t, http.MethodPost, "/sessions/id-1/advance", nil)

	rr := env.do(t, http.MethodPut, "/sessions/id-1/answers/q1", `{"value":"z"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, form.Answers{"q1": form.Single("y")}, env.sink.all()[0].Answers)
}

func TestAbandonSession(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("g", form.StatusPublished))
	env.start(t, "g")

	rr := env.do(t, http.MethodDelete, "/sessions/id-1", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	again := env.do(t, http.MethodGet, "/sessions/id-1", nil)
	assert.Equal(t, http.StatusNotFound, again.Code)
	assert.Empty(t, env.sink.all())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("g", form.StatusPublished))
	env.start(t, "g")
	env.do(t, http.MethodPost, "/sessions/id-1/advance", nil)

	rr := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `formstep_sessions_started_total{form="g"} 1`)
	assert.Contains(t, body, `formstep_navigation_total{form="g",outcome="blocked"} 1`)
	assert.Contains(t, body, "formstep_active_sessions 1")
}

func TestFormETag(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, testutil.GateForm("g", form.StatusDraft))

	first := env.do(t, http.MethodGet, "/forms/g", nil)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/forms/g", nil)
	req.Header.Set("If-None-Match", etag)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotModified, rr.Code)

	put := func(title, match string) *httptest.ResponseRecorder {
		f := testutil.GateForm("g", form.StatusDraft)
		f.Title = title
		body, err := json.Marshal(f)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPut, "/forms/g", bytes.NewReader(body))
		req.Header.Set("If-Match", match)
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, req)
		return rr
	}

	updated := put("Gate v2", etag)
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())
	assert.NotEqual(t, etag, updated.Header().Get("ETag"))

	// The old tag no longer matches the stored definition.
	stale := put("Gate v3", etag)
	assert.Equal(t, http.StatusPreconditionFailed, stale.Code)

	after := env.do(t, http.MethodGet, "/forms/g", nil)
	assert.Equal(t, updated.Header().Get("ETag"), after.Header().Get("ETag"))
}

// manualClock only moves when advanced.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestIdleSessionsExpire(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := &manualClock{now: testutil.Epoch}
	srv := New(Config{
		Store:      st,
		IDs:        ident.NewSequenceGenerator("id"),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        clock.Now,
		SessionTTL: time.Minute,
	})
	env := &testEnv{handler: srv.Handler(), store: st, sink: &recorder{}}
	env.seed(t, testutil.GateForm("g", form.StatusPublished))
	env.start(t, "g")

	clock.advance(45 * time.Second)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/sessions/id-1", nil).Code)

	// Each request resets the idle time.
	clock.advance(45 * time.Second)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/sessions/id-1", nil).Code)

	clock.advance(2 * time.Minute)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/sessions/id-1", nil).Code)
	assert.Equal(t, 1, srv.sessions.len(), "expired but not yet swept")

	env.start(t, "g")
	assert.Equal(t, 1, srv.sessions.len(), "starting a session sweeps idle ones")
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/sessions/id-2", nil).Code)
}

func TestNegativeSessionTTLKeepsSessions(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := &manualClock{now: testutil.Epoch}
	srv := New(Config{
		Store:      st,
		IDs:        ident.NewSequenceGenerator("id"),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        clock.Now,
		SessionTTL: -1,
	})
	env := &testEnv{handler: srv.Handler(), store: st, sink: &recorder{}}
	env.seed(t, testutil.GateForm("g", form.StatusPublished))
	env.start(t, "g")

	clock.advance(24 * time.Hour)
	env.start(t, "g")
	assert.Equal(t, 2, srv.sessions.len())
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/sessions/id-1", nil).Code)
}
