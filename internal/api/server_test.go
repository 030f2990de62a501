package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/todmy/interolog/internal/auth"
	"github.com/todmy/interolog/internal/interolog"
	"github.com/todmy/interolog/pkg/models"
)

type memoryCurators struct {
	byEmail map[string]*models.Curator
}

func (m *memoryCurators) Create(ctx context.Context, curator *models.Curator) error {
	curator.ID = "curator-1"
	m.byEmail[curator.Email] = curator
	return nil
}

func (m *memoryCurators) GetByID(ctx context.Context, id string) (*models.Curator, error) {
	for _, c := range m.byEmail {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, auth.ErrCuratorNotFound
}

func (m *memoryCurators) GetByEmail(ctx context.Context, email string) (*models.Curator, error) {
	if c, ok := m.byEmail[email]; ok {
		return c, nil
	}
	return nil, auth.ErrCuratorNotFound
}

func mitabLine(a, b, method, pub string) string {
	return strings.Join([]string{
		"uniprotkb:" + a,
		"uniprotkb:" + b,
		"-", "-", "-", "-",
		`psi-mi:"` + method + `"(two hybrid)`,
		"-",
		"pubmed:" + pub,
		"taxid:9606(human)",
		"taxid:9606(human)",
		`psi-mi:"MI:0915"(physical association)`,
		`psi-mi:"MI:0469"(IntAct)`,
		"-",
		"-",
	}, "\t")
}

var sampleMITAB = strings.Join([]string{
	mitabLine("P1", "P2", "MI:0018", "1"),
	mitabLine("P2", "P3", "MI:0096", "2"),
}, "\n")

type testServer struct {
	t      *testing.T
	server *Server
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	authService := auth.NewJWTService(
		auth.Config{SecretKey: "test-secret", TokenDuration: time.Hour},
		&memoryCurators{byEmail: make(map[string]*models.Curator)},
	)
	service := interolog.NewService(interolog.ServiceConfig{Logger: log.New(io.Discard, "", 0)})

	ts := &testServer{t: t, server: NewServer(ServerConfig{Service: service, Auth: authService})}

	rec := ts.do(http.MethodPost, "/api/v1/auth/register", `{"email":"curator@example.com","password":"password123"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected status 201, got %d: %s", rec.Code, rec.Body)
	}
	rec = ts.do(http.MethodPost, "/api/v1/auth/login", `{"email":"curator@example.com","password":"password123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected status 200, got %d: %s", rec.Code, rec.Body)
	}
	var token auth.TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	ts.token = token.Token
	return ts
}

// loginAs registers and logs in another curator, replacing the token.
func (ts *testServer) loginAs(email string) {
	ts.t.Helper()
	creds := `{"email":"` + email + `","password":"password123"}`
	if rec := ts.do(http.MethodPost, "/api/v1/auth/register", creds); rec.Code != http.StatusCreated {
		ts.t.Fatalf("register: expected status 201, got %d: %s", rec.Code, rec.Body)
	}
	rec := ts.do(http.MethodPost, "/api/v1/auth/login", creds)
	var token auth.TokenResponse
	ts.decode(rec, &token)
	ts.token = token.Token
}

func (ts *testServer) request(req *http.Request) *httptest.ResponseRecorder {
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return ts.request(httptest.NewRequest(method, path, r))
}

func (ts *testServer) decode(rec *httptest.ResponseRecorder, v any) {
	ts.t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		ts.t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/evidence"},
		{http.MethodPost, "/api/v1/evidence"},
		{http.MethodGet, "/api/v1/topology"},
		{http.MethodGet, "/api/v1/links"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			if rec := ts.do(rt.method, rt.path, ""); rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}
		})
	}
}

func TestIngestAndQueryEvidence(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/evidence", sampleMITAB)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body)
	}
	var result interolog.IngestResult
	ts.decode(rec, &result)
	if result.Added != 2 || result.Source != "curator@example.com:body" {
		t.Errorf("unexpected ingest result %+v", result)
	}

	rec = ts.do(http.MethodGet, "/api/v1/evidence/P2", "")
	var records []map[string]any
	ts.decode(rec, &records)
	if len(records) != 2 {
		t.Errorf("expected 2 records for P2, got %d", len(records))
	}

	rec = ts.do(http.MethodGet, "/api/v1/evidence/P3/P2", "")
	ts.decode(rec, &records)
	if len(records) != 1 {
		t.Errorf("expected 1 record for P2-P3, got %d", len(records))
	}

	rec = ts.do(http.MethodGet, "/api/v1/partners", "")
	var partners map[string][]string
	ts.decode(rec, &partners)
	if strings.Join(partners["P2"], ",") != "P1,P3" {
		t.Errorf("unexpected partners %v", partners)
	}

	rec = ts.do(http.MethodGet, "/api/v1/topology", "")
	var top models.Topology
	ts.decode(rec, &top)
	if len(top.Nodes) != 3 || len(top.Edges) != 2 || len(top.Components) != 1 {
		t.Errorf("unexpected topology %+v", top)
	}
}

func TestIngestMultipartFile(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		filename string
		want     int
	}{
		{"intact.mitab", http.StatusCreated},
		{"intact.pdf", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			fw, err := mw.CreateFormFile("file", tt.filename)
			if err != nil {
				t.Fatalf("create form file: %v", err)
			}
			fw.Write([]byte(sampleMITAB))
			mw.Close()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/evidence", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			if rec := ts.request(req); rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body)
			}
		})
	}
}

func TestDumpFormats(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodPost, "/api/v1/evidence", sampleMITAB)

	rec := ts.do(http.MethodGet, "/api/v1/evidence?format=text", "")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain, got %s", ct)
	}
	if got := strings.Count(rec.Body.String(), "\n"); got != 1 {
		t.Errorf("expected two lines, got %q", rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/api/v1/evidence", "")
	var env struct {
		Type string `json:"type"`
		Data []any  `json:"data"`
	}
	ts.decode(rec, &env)
	if env.Type != "mitabResult" || len(env.Data) != 2 {
		t.Errorf("unexpected dump %+v", env)
	}

	if rec := ts.do(http.MethodGet, "/api/v1/evidence?format=xml", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestFilterFlushAndClear(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodPost, "/api/v1/evidence", sampleMITAB)

	rec := ts.do(http.MethodPost, "/api/v1/evidence/filter", `{"ids":["P1"]}`)
	var env struct {
		Data []any `json:"data"`
	}
	ts.decode(rec, &env)
	if len(env.Data) != 1 {
		t.Errorf("expected 1 filtered record, got %d", len(env.Data))
	}

	if rec := ts.do(http.MethodPost, "/api/v1/evidence/filter", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for an empty filter, got %d", rec.Code)
	}

	if rec := ts.do(http.MethodPost, "/api/v1/evidence/flush-raw", ""); rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	if rec := ts.do(http.MethodDelete, "/api/v1/evidence", ""); rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	rec = ts.do(http.MethodGet, "/api/v1/evidence/P1", "")
	var records []any
	ts.decode(rec, &records)
	if len(records) != 0 {
		t.Errorf("expected no records after clear, got %d", len(records))
	}
}

func hitFields(template string, similar int) []string {
	return []string{template, "300", "1", "50", "1", "50", strconv.Itoa(similar), "40", "0.01", "100"}
}

func TestLinkLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodPost, "/api/v1/evidence", sampleMITAB)

	query := interolog.LinkQuery{
		QueryLow:  "Q1",
		QueryHigh: "Q2",
		Hits: []models.HomologyHit{
			{Low: hitFields("P1", 40), High: hitFields("P2", 45)},
			{Low: hitFields("P2", 10), High: hitFields("P3", 45)},
		},
	}
	body, _ := json.Marshal(query)

	rec := ts.do(http.MethodPost, "/api/v1/links", string(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body)
	}
	var view interolog.LinkView
	ts.decode(rec, &view)
	if view.Depth != 2 {
		t.Errorf("expected depth 2, got %d", view.Depth)
	}

	rec = ts.do(http.MethodGet, "/api/v1/links", "")
	var links []models.Link
	ts.decode(rec, &links)
	if len(links) != 1 || links[0].ID != view.ID {
		t.Errorf("unexpected links %+v", links)
	}

	rec = ts.do(http.MethodPost, "/api/v1/links/"+view.ID+"/trim", `{"similarity_min": 50, "compact": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body)
	}
	ts.decode(rec, &view)
	if view.Depth != 1 || len(view.Snapshot.Low) != 1 {
		t.Errorf("expected one row left after trim, got %+v", view)
	}

	rec = ts.do(http.MethodGet, "/api/v1/links/"+view.ID+"/similar?row=0&side=high&threshold=0", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", rec.Code, rec.Body)
	}

	if rec := ts.do(http.MethodGet, "/api/v1/links/"+view.ID+"/similar?row=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	rec = ts.do(http.MethodGet, "/api/v1/links/"+view.ID+"/outliers?k=1", "")
	var outliers []models.HitOutlier
	ts.decode(rec, &outliers)
	if len(outliers) != 2 {
		t.Errorf("expected a score for both hits of the row, got %+v", outliers)
	}

	if rec := ts.do(http.MethodGet, "/api/v1/links/"+view.ID+"/outliers?k=0", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	if rec := ts.do(http.MethodPost, "/api/v1/links/"+view.ID+"/trim", `{"taxon_mode":"most"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad trim options, got %d", rec.Code)
	}

	if rec := ts.do(http.MethodDelete, "/api/v1/links/"+view.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/v1/links/"+view.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestCreateLinkInlineTrimAndAttribution(t *testing.T) {
	ts := newTestServer(t)

	hits, _ := json.Marshal([]models.HomologyHit{
		{Low: hitFields("P1", 40), High: hitFields("P2", 45)},
		{Low: hitFields("P2", 10), High: hitFields("P3", 45)},
	})
	body := `{"query_low":"Q1","query_high":"Q2","hits":` + string(hits) + `,"trim":{"similarity_min":10}}`

	rec := ts.do(http.MethodPost, "/api/v1/links", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body)
	}
	var view interolog.LinkView
	ts.decode(rec, &view)
	if view.Depth != 2 {
		t.Errorf("expected hits with e-value 0.01 to survive a partial trim, got depth %d", view.Depth)
	}
	if view.CreatedBy != "curator@example.com" {
		t.Errorf("expected the link to be attributed to the curator, got %q", view.CreatedBy)
	}

	tests := []struct {
		curator string
		want    int
	}{
		{"", 1},
		{"curator@example.com", 1},
		{"someone@example.com", 0},
	}
	for _, tt := range tests {
		rec := ts.do(http.MethodGet, "/api/v1/links?created_by="+tt.curator, "")
		var links []models.Link
		ts.decode(rec, &links)
		if len(links) != tt.want {
			t.Errorf("created_by=%q: expected %d links, got %d", tt.curator, tt.want, len(links))
		}
	}
}

func TestLinkBelongsToItsCurator(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(interolog.LinkQuery{
		QueryLow:  "Q1",
		QueryHigh: "Q2",
		Hits:      []models.HomologyHit{{Low: hitFields("P1", 40), High: hitFields("P2", 45)}},
	})
	rec := ts.do(http.MethodPost, "/api/v1/links", string(body))
	var view interolog.LinkView
	ts.decode(rec, &view)

	ts.loginAs("other@example.com")

	if rec := ts.do(http.MethodPost, "/api/v1/links/"+view.ID+"/trim", `{}`); rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403 on trim, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodDelete, "/api/v1/links/"+view.ID, ""); rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403 on delete, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/v1/links/"+view.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("expected other curators to read the link, got %d", rec.Code)
	}
}

func TestLinkErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"invalid id", http.MethodGet, "/api/v1/links/not-a-uuid", "", http.StatusBadRequest},
		{"unknown link", http.MethodGet, "/api/v1/links/123e4567-e89b-12d3-a456-426614174000", "", http.StatusNotFound},
		{"missing queries", http.MethodPost, "/api/v1/links", `{"hits":[]}`, http.StatusBadRequest},
		{"no hits", http.MethodPost, "/api/v1/links", `{"query_low":"Q1","query_high":"Q2"}`, http.StatusBadRequest},
		{"bad inline trim", http.MethodPost, "/api/v1/links", `{"query_low":"Q1","query_high":"Q2","hits":[{"low":["T1"],"high":["T2"]}],"trim":{"taxon_mode":"most"}}`, http.StatusBadRequest},
		{"trim unknown link", http.MethodPost, "/api/v1/links/123e4567-e89b-12d3-a456-426614174000/trim", `{}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := ts.do(tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body)
			}
		})
	}
}
