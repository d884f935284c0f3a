package routes

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/politifan/school-peaky-minds/internal/application/container"
	"github.com/politifan/school-peaky-minds/internal/application/services"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/email/templates"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/security"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

const (
	testSecret        = "test-secret"
	adminID           = "1547353132"
	sessionCookie     = "pm_session"
	visitCookie       = "pm_visit"
	formContentType   = "application/x-www-form-urlencoded"
	landingReferer    = "https://peakyminds.school/courses/python?utm_source=vk"
	contractRecipient = "student@example.com"
	unknownLeadID     = "lead_1700000000_deadbeef.json"
	malformedLeadID   = "../lead_1.json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mail struct {
	to   string
	code string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail
}

func (m *recordingMailer) SendLoginCode(to, code string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail{to: to, code: code})
	return nil
}

func (m *recordingMailer) SendContract(to string, _ templates.ContractProps) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail{to: to})
	return nil
}

func (m *recordingMailer) last() mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mail{}
	}
	return m.sent[len(m.sent)-1]
}

type app struct {
	t      *testing.T
	router *gin.Engine
	c      *container.Container
	mailer *recordingMailer
	clock  *clock.Stub
}

func newApp(t *testing.T) *app {
	t.Helper()
	clk := clock.Fixed()
	mailer := &recordingMailer{}
	settings := container.Settings{
		DataDir:          t.TempDir(),
		StoreBackend:     container.BackendFile,
		BaseURL:          "https://peakyminds.school",
		CORSOrigins:      []string{"https://peakyminds.school"},
		SessionSecret:    testSecret,
		SessionTTL:       24 * time.Hour,
		SessionCookie:    sessionCookie,
		VisitCookie:      visitCookie,
		CodeTTL:          10 * time.Minute,
		AdminTelegramID:  1547353132,
		FeedPingInterval: time.Minute,
	}
	c, err := container.NewContainer(context.Background(), settings, mailer, clk,
		logging.NewDiscardLogger(), performance.NewTracker(performance.DefaultTrackerConfig()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return &app{t: t, router: SetupRoutes(c), c: c, mailer: mailer, clock: clk}
}

func (a *app) session(provider, id string) *http.Cookie {
	a.t.Helper()
	token, err := security.IssueSession(security.Session{
		UserID:   provider + ":" + id,
		Provider: provider,
		Name:     "Tester",
	}, testSecret, a.clock.Now(), time.Hour)
	require.NoError(a.t, err)
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func (a *app) admin() *http.Cookie { return a.session("telegram", adminID) }

func (a *app) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", formContentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func (a *app) submitLead(name string) string {
	a.t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/apply", strings.NewReader(url.Values{
		"name": {name}, "phone": {"+7 900 111-22-33"}, "course": {"Python"},
	}.Encode()))
	req.Header.Set("Content-Type", formContentType)
	req.Header.Set("Referer", landingReferer)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(a.t, w)["id"].(string)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	w := a.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Nil(t, responseCookie(w, visitCookie))
}

func TestApplyStoresLead(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	ctx := context.Background()
	id := a.submitLead("  Анна ")

	lead, ok, err := a.c.Records.Load(ctx, records.KindLead, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Анна", lead.String(records.FieldName))
	assert.Equal(t, "+7 900 111-22-33", lead.String(records.FieldContact))
	assert.Equal(t, landingReferer, lead.String(records.FieldPage))
	ts, ok := lead.Timestamp()
	require.True(t, ok)
	assert.Equal(t, a.clock.Now().Unix(), ts)

	metrics, err := a.c.AnalyticsService.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.Funnel.Apply)
}

func TestEnrollRequiresSession(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	form := url.Values{"course": {"Python"}, "full_name": {"Иван Петров"}, "email": {contractRecipient}}

	w := a.do(http.MethodPost, "/enroll", form)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/enroll", form, &http.Cookie{Name: sessionCookie, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/enroll", form, a.session("email", contractRecipient))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.True(t, strings.HasPrefix(body["contractUrl"].(string), "https://peakyminds.school/contract/"))

	doc, ok, err := a.c.Records.Load(context.Background(), records.KindAgreement, body["id"].(string))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, services.ContractStatusPending, doc.String(records.FieldContractStatus))
	assert.Equal(t, "email:"+contractRecipient, doc[records.FieldUser].(map[string]any)["id"])
}

func TestEmailLogin(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	w := a.do(http.MethodPost, "/auth/email/request", url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/auth/email/request", url.Values{"email": {" Student@Example.com "}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := a.mailer.last()
	assert.Equal(t, contractRecipient, sent.to)
	require.Len(t, sent.code, services.LoginCodeDigits)

	wrong := "000000"
	if sent.code == wrong {
		wrong = "111111"
	}
	w = a.do(http.MethodPost, "/auth/email/verify", url.Values{"email": {contractRecipient}, "code": {wrong}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/auth/email/verify", url.Values{"email": {contractRecipient}, "code": {sent.code}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookie := responseCookie(w, sessionCookie)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	w = a.do(http.MethodGet, "/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["admin"])
	assert.Equal(t, "email:"+contractRecipient, body["user"].(map[string]any)["id"])

	w = a.do(http.MethodPost, "/auth/email/verify", url.Values{"email": {contractRecipient}, "code": {sent.code}})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "codes are single use")

	w = a.do(http.MethodPost, "/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := responseCookie(w, sessionCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestTelegramLogin(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	w := a.do(http.MethodGet, "/auth/telegram?id=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/auth/telegram?id=1&auth_date=1&hash=abc", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeAnonymous(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	w := a.do(http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null,"admin":false}`, w.Body.String())
}

func TestAdminAccess(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	w := a.do(http.MethodGet, "/admin/api/overview", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/admin/api/overview", nil, a.session("email", contractRecipient))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/admin/api/overview", nil, a.session("telegram", "1065558838"))
	assert.Equal(t, http.StatusForbidden, w.Code, "last whitelist entry is not an admin")

	w = a.do(http.MethodGet, "/admin/api/overview", nil, a.admin())
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, "/auth/me", nil, a.admin())
	assert.Equal(t, true, decode(t, w)["admin"])
}

func TestAdminOverview(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.submitLead("Анна")
	a.submitLead("Борис")

	w := a.do(http.MethodGet, "/admin/api/overview?view=leads&limit=abc&q="+url.QueryEscape("анна"), nil, a.admin())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "leads", body["view"])
	leads := body["leads"].(map[string]any)
	items := leads["items"].([]any)
	require.Len(t, items, 1)
	record := items[0].(map[string]any)["record"].(map[string]any)
	assert.Equal(t, "Анна", record["name"])
}

func TestAdminLeadMutations(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	ctx := context.Background()
	id := a.submitLead("Анна")

	cases := []struct {
		name string
		form url.Values
		code int
	}{
		{"malformed id", url.Values{"file": {malformedLeadID}, "status": {"paid"}}, http.StatusBadRequest},
		{"unknown status", url.Values{"file": {id}, "status": {"done"}}, http.StatusBadRequest},
		{"missing record", url.Values{"file": {unknownLeadID}, "status": {"paid"}}, http.StatusNotFound},
		{"manual status", url.Values{"file": {id}, "status": {"paid"}}, http.StatusOK},
	}
	for _, tc := range cases {
		w := a.do(http.MethodPost, "/admin/leads/status", tc.form, a.admin())
		assert.Equal(t, tc.code, w.Code, tc.name)
	}

	lead, _, err := a.c.Records.Load(ctx, records.KindLead, id)
	require.NoError(t, err)
	assert.Equal(t, records.StatusPaid, lead.String(records.FieldStatus))
	stamped, ok := lead.Int64(records.FieldStatusUpdatedAt)
	require.True(t, ok)
	assert.Equal(t, a.clock.Now().Unix(), stamped)

	w := a.do(http.MethodPost, "/admin/leads/meta", url.Values{
		"file": {id}, "tags": {"vip,\n горячий "}, "note": {" перезвонить "}, "next_contact": {"завтра"},
	}, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	lead, _, err = a.c.Records.Load(ctx, records.KindLead, id)
	require.NoError(t, err)
	assert.Equal(t, "vip, горячий", lead.String(records.FieldTags))
	assert.Equal(t, "перезвонить", lead.String(records.FieldNote))
	assert.NotContains(t, lead, records.FieldNextContact)

	w = a.do(http.MethodPost, "/admin/leads/status", url.Values{"file": {id}, "status": {"auto"}}, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	lead, _, err = a.c.Records.Load(ctx, records.KindLead, id)
	require.NoError(t, err)
	assert.NotContains(t, lead, records.FieldStatus)
	assert.NotContains(t, lead, records.FieldStatusUpdatedAt)
}

func TestAdminAgreementMutations(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	ctx := context.Background()
	w := a.do(http.MethodPost, "/enroll", url.Values{"course": {"Go"}}, a.session("email", contractRecipient))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = a.do(http.MethodPost, "/admin/agreements/status", url.Values{"file": {id}, "status": {"signed"}}, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodPost, "/admin/agreements/status", url.Values{"file": {id}, "status": {"contacted"}}, a.admin())
	assert.Equal(t, http.StatusBadRequest, w.Code, "lead statuses are not agreement statuses")

	w = a.do(http.MethodPost, "/admin/agreements/amount", url.Values{"file": {id}, "amount": {"12 500,50"}}, a.admin())
	require.Equal(t, http.StatusOK, w.Code)

	doc, _, err := a.c.Records.Load(ctx, records.KindAgreement, id)
	require.NoError(t, err)
	assert.Equal(t, records.StatusSigned, doc.String(records.FieldStatus))
	amount, ok := records.ParseAmount(doc[records.FieldAmount])
	require.True(t, ok)
	assert.InDelta(t, 12500.5, amount, 0.001)

	w = a.do(http.MethodPost, "/admin/agreements/amount", url.Values{"file": {id}, "amount": {"n/a"}}, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	doc, _, err = a.c.Records.Load(ctx, records.KindAgreement, id)
	require.NoError(t, err)
	assert.NotContains(t, doc, records.FieldAmount)
}

func TestAdminWhitelist(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	w := a.do(http.MethodPost, "/admin/whitelist", url.Values{"ids": {"111, 222\nabc 333"}}, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"ids":[111,222,1547353132,333]}`, w.Body.String())

	w = a.do(http.MethodPost, "/admin/whitelist/remove", url.Values{"id": {"x"}}, a.admin())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/admin/whitelist/remove", url.Values{"id": {"222"}}, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"ids":[111,1547353132,333]}`, w.Body.String())

	w = a.do(http.MethodPost, "/admin/whitelist", url.Values{"ids": {"none here"}}, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"ids":[111,1547353132,333]}`, w.Body.String())

	w = a.do(http.MethodPost, "/admin/whitelist", url.Values{"whitelist": {"444\n555"}}, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"ids":[444,1547353132,555]}`, w.Body.String())
}

func TestAdminExports(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.submitLead("Анна")

	w := a.do(http.MethodGet, "/admin/export/leads.csv", nil, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "leads.csv")
	rows, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, services.LeadCSVHeader, rows[0])
	assert.Equal(t, "Анна", rows[1][1])
	assert.Equal(t, "Новая", rows[1][5])

	w = a.do(http.MethodGet, "/admin/export/agreements.csv", nil, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), strings.Join(services.AgreementCSVHeader, ",")+"\n"))

	w = a.do(http.MethodGet, "/admin/export/users.csv", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContractFlow(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	w := a.do(http.MethodPost, "/enroll", url.Values{
		"course": {"Python"}, "full_name": {"Иван Петров"}, "email": {contractRecipient},
	}, a.session("email", contractRecipient))
	require.Equal(t, http.StatusCreated, w.Code)
	contractURL, err := url.Parse(decode(t, w)["contractUrl"].(string))
	require.NoError(t, err)
	path := contractURL.Path

	w = a.do(http.MethodGet, "/contract/unknown-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	assert.Equal(t, services.ContractStatusPending, view["status"])
	assert.Equal(t, services.ChannelEmail, view["default_channel"])

	w = a.do(http.MethodPost, path+"/send", url.Values{"channel": {"telegram"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(http.MethodPost, path+"/send", url.Values{"channel": {"pigeon"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, path+"/send", url.Values{"channel": {"email"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, contractRecipient, a.mailer.last().to)

	w = a.do(http.MethodPost, path+"/sign", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodPost, path+"/send", url.Values{"channel": {"email"}, "email": {"other@example.com"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "other@example.com", a.mailer.last().to)

	w = a.do(http.MethodGet, path, nil)
	view = decode(t, w)
	assert.Equal(t, services.ContractStatusSigned, view["status"], "sending never downgrades a signed contract")
	assert.Equal(t, "other@example.com", view["manual_email"])
}

func TestVisitTracking(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	ctx := context.Background()

	w := a.do(http.MethodGet, "/", nil)
	cookie := responseCookie(w, visitCookie)
	require.NotNil(t, cookie)
	assert.Len(t, cookie.Value, 26)
	assert.Equal(t, 365*24*60*60, cookie.MaxAge)

	w = a.do(http.MethodGet, "/courses/python", nil, cookie)
	assert.Nil(t, responseCookie(w, visitCookie), "existing visitors keep their id")

	a.do(http.MethodGet, "/static/app.css", nil, cookie)
	a.do(http.MethodGet, "/favicon.ico", nil, cookie)
	a.do(http.MethodPost, "/", nil, cookie)

	metrics, err := a.c.AnalyticsService.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), metrics.TotalVisits)
	assert.Equal(t, int64(1), metrics.UniqueVisits)
	assert.Equal(t, int64(1), metrics.Funnel.Home)
	assert.Equal(t, int64(1), metrics.PathCounts["/courses/python"])
}

func TestPerfEndpoint(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.submitLead("Анна")

	w := a.do(http.MethodGet, "/admin/api/perf?recent=5", nil, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "submit_lead")
}

func TestLogLevelEndpoints(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	w := a.do(http.MethodGet, "/admin/api/logging", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/admin/api/logging", nil, a.admin())
	require.Equal(t, http.StatusOK, w.Code)
	levels := decode(t, w)["levels"].(map[string]any)
	assert.Equal(t, "DEBUG", levels["http"])
	assert.Contains(t, levels, "bot")

	w = a.do(http.MethodPost, "/admin/api/logging", url.Values{"channel": {"http"}, "level": {"warn"}}, a.admin())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	levels = decode(t, w)["levels"].(map[string]any)
	assert.Equal(t, "WARN", levels["http"])
	assert.Equal(t, "DEBUG", levels["records"])

	w = a.do(http.MethodPost, "/admin/api/logging", url.Values{"channel": {"http"}, "level": {"chatty"}}, a.admin())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(http.MethodPost, "/admin/api/logging", url.Values{"channel": {"nope"}, "level": {"info"}}, a.admin())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
