package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/app/export"
	"github.com/listforge/listforge/internal/app/ledger"
	"github.com/listforge/listforge/internal/app/pipeline"
	"github.com/listforge/listforge/internal/app/session"
	"github.com/listforge/listforge/internal/infra/sqlite"
)

// scriptedGen replays canned model replies in order.
type scriptedGen struct {
	replies []string
	calls   int
}

func (g *scriptedGen) Generate(ctx context.Context, prompt string, image []byte, imageMIME string) (string, error) {
	if g.calls >= len(g.replies) {
		return "", fmt.Errorf("unexpected model call %d", g.calls)
	}
	reply := g.replies[g.calls]
	g.calls++
	return reply, nil
}

type testServer struct {
	srv *httptest.Server
	db  *sqlite.DB
	gen *scriptedGen
}

func newTestServer(t *testing.T, gen *scriptedGen) *testServer {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zap.NewNop()
	credits := ledger.New(db, log)
	sessions := session.NewManager(time.Hour, log)
	runner := pipeline.NewRunner(gen, credits, pipeline.DefaultCosts(), log)
	exporter := export.New(log)
	auth := NewAuth(db, "test-secret", time.Hour, log)

	server := NewServer(auth, credits, sessions, runner, exporter, log)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testServer{srv: ts, db: db, gen: gen}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(js)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var out map[string]interface{}
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp, out
}

func (ts *testServer) register(t *testing.T, username string) string {
	t.Helper()
	resp, body := ts.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (ts *testServer) mintAndRedeem(t *testing.T, token string, amount int64) {
	t.Helper()
	code := fmt.Sprintf("VOUCHER-%d-%d", amount, time.Now().UnixNano())
	require.NoError(t, ts.db.InsertVoucher(context.Background(), code, amount))
	resp, _ := ts.request(t, http.MethodPost, "/api/account/redeem", token, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (ts *testServer) createWorkflow(t *testing.T, token string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("brand", "Acme"))
	fw, err := mw.CreateFormFile("image", "mug.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/workflows", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var snap struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.NotEmpty(t, snap.ID)
	return snap.ID
}

// ─── Auth ───────────────────────────────────────────────────────────────────

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})

	ts.register(t, "alice")

	resp, body := ts.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestRegister_Duplicate(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	ts.register(t, "alice")

	resp, _ := ts.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"password": "other-password",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	ts.register(t, "alice")

	resp, _ := ts.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "nobody",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "missing account is indistinguishable")
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})

	resp, _ := ts.request(t, http.MethodGet, "/api/account", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.request(t, http.MethodGet, "/api/account", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ─── Account & Vouchers ─────────────────────────────────────────────────────

func TestRedeemAndBalance(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	token := ts.register(t, "alice")

	resp, body := ts.request(t, http.MethodGet, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["balance"])

	require.NoError(t, ts.db.InsertVoucher(context.Background(), "GIFT-50", 50))
	resp, body = ts.request(t, http.MethodPost, "/api/account/redeem", token, map[string]string{"code": "GIFT-50"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 50, body["credited"])
	assert.EqualValues(t, 50, body["balance"])

	// Second redemption of the same code must not credit again.
	resp, _ = ts.request(t, http.MethodPost, "/api/account/redeem", token, map[string]string{"code": "GIFT-50"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body = ts.request(t, http.MethodGet, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 50, body["balance"])
}

func TestRedeem_UnknownCode(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	token := ts.register(t, "alice")

	resp, _ := ts.request(t, http.MethodPost, "/api/account/redeem", token, map[string]string{"code": "NOPE"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	token := ts.register(t, "alice")
	ts.mintAndRedeem(t, token, 25)

	resp, body := ts.request(t, http.MethodGet, "/api/account/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries, ok := body["entries"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
}

// ─── Workflows ──────────────────────────────────────────────────────────────

const (
	identJSON = `{"product_name":"mug","materials":["ceramic"],"colors":["blue"],"features":["glazed"],"audience":"home"}`
	catJSON   = `{"primary":"Home & Kitchen > Mugs","alternatives":[],"rationale":"mug"}`
	draftJSON = `{"title":"Blue Mug","bullets":["b1"],"description":"A mug.","search_terms":["mug"]}`
	shotsJSON = `{"shots":[{"label":"hero","prompt":"mug on table"}]}`
)

func TestWorkflowLifecycle(t *testing.T) {
	gen := &scriptedGen{replies: []string{identJSON, catJSON, draftJSON, shotsJSON}}
	ts := newTestServer(t, gen)
	token := ts.register(t, "alice")
	ts.mintAndRedeem(t, token, 50)
	id := ts.createWorkflow(t, token)

	for _, stage := range []string{"identify", "categorize", "draftcopy", "imagery"} {
		resp, body := ts.request(t, http.MethodPost, "/api/workflows/"+id+"/stages/"+stage, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "stage %s: %v", stage, body)
	}

	resp, body := ts.request(t, http.MethodGet, "/api/workflows/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "VISUALS_PLANNED", body["phase"])

	// identify 2 + categorize 1 + draftcopy 3 + imagery 2 = 8 spent.
	resp, body = ts.request(t, http.MethodGet, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 42, body["balance"])

	// Export is free and returns a zip attachment.
	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/workflows/"+id+"/export", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	eresp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer eresp.Body.Close()
	require.Equal(t, http.StatusOK, eresp.StatusCode)
	assert.Equal(t, "application/zip", eresp.Header.Get("Content-Type"))
	archive, err := io.ReadAll(eresp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, archive)

	resp, body = ts.request(t, http.MethodGet, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 42, body["balance"], "export must not charge")
}

func TestRunStage_OutOfOrder(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	token := ts.register(t, "alice")
	ts.mintAndRedeem(t, token, 50)
	id := ts.createWorkflow(t, token)

	resp, _ := ts.request(t, http.MethodPost, "/api/workflows/"+id+"/stages/draftcopy", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRunStage_InsufficientCredit(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	token := ts.register(t, "alice")
	id := ts.createWorkflow(t, token)

	resp, _ := ts.request(t, http.MethodPost, "/api/workflows/"+id+"/stages/identify", token, nil)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestRunStage_Unknown(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	token := ts.register(t, "alice")
	id := ts.createWorkflow(t, token)

	resp, _ := ts.request(t, http.MethodPost, "/api/workflows/"+id+"/stages/teleport", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWorkflow_OwnershipIsolation(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	aliceToken := ts.register(t, "alice")
	bobToken := ts.register(t, "bob")
	id := ts.createWorkflow(t, aliceToken)

	resp, _ := ts.request(t, http.MethodGet, "/api/workflows/"+id, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "foreign workflow looks missing")

	resp, _ = ts.request(t, http.MethodGet, "/api/workflows/"+id, aliceToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWorkflowReset(t *testing.T) {
	gen := &scriptedGen{replies: []string{identJSON}}
	ts := newTestServer(t, gen)
	token := ts.register(t, "alice")
	ts.mintAndRedeem(t, token, 50)
	id := ts.createWorkflow(t, token)

	resp, _ := ts.request(t, http.MethodPost, "/api/workflows/"+id+"/stages/identify", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.request(t, http.MethodPost, "/api/workflows/"+id+"/reset", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "UPLOADING", body["phase"])
	assert.Equal(t, false, body["has_image"])
	assert.Nil(t, body["identification"])

	// Reset is not a refund.
	resp, body = ts.request(t, http.MethodGet, "/api/account", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 48, body["balance"])
}

func TestDeleteWorkflow(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	token := ts.register(t, "alice")
	id := ts.createWorkflow(t, token)

	resp, _ := ts.request(t, http.MethodDelete, "/api/workflows/"+id, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.request(t, http.MethodGet, "/api/workflows/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExport_TooEarly(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})
	token := ts.register(t, "alice")
	id := ts.createWorkflow(t, token)

	resp, _ := ts.request(t, http.MethodGet, "/api/workflows/"+id+"/export", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// ─── Public Endpoints ───────────────────────────────────────────────────────

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t, &scriptedGen{})

	resp, body := ts.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = ts.request(t, http.MethodGet, "/api/version", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, Version, body["version"])
}
