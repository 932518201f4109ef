// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/plenumlab/plenum/internal/database"
	"github.com/plenumlab/plenum/internal/models"
)

type fakeReader struct {
	terms   []models.Term
	clubs   []models.Club
	pingErr error
	listErr error
}

var _ Reader = (*fakeReader)(nil)

func (f *fakeReader) Ping(context.Context) error { return f.pingErr }

func (f *fakeReader) GetTerm(_ context.Context, num int) (*models.Term, error) {
	for i := range f.terms {
		if f.terms[i].Num == num {
			return &f.terms[i], nil
		}
	}
	return nil, fmt.Errorf("term %d: %w", num, database.ErrNotFound)
}

func (f *fakeReader) ListTerms(context.Context) ([]models.Term, error) {
	return f.terms, f.listErr
}

func (f *fakeReader) ListClubs(context.Context, int) ([]models.Club, error) {
	return f.clubs, f.listErr
}

func (f *fakeReader) ListMPs(context.Context, int) ([]models.MP, error)           { return nil, f.listErr }
func (f *fakeReader) ListSittings(context.Context, int) ([]models.Sitting, error) { return nil, f.listErr }
func (f *fakeReader) ListVotings(context.Context, int) ([]models.Voting, error)   { return nil, f.listErr }
func (f *fakeReader) ListProcesses(context.Context, int) ([]models.Process, error) {
	return nil, f.listErr
}

func (f *fakeReader) EntityCounts(context.Context, int) (map[string]int, error) {
	return map[string]int{"club": len(f.clubs)}, f.listErr
}

type fakeSyncer struct {
	reports  []*models.SyncReport
	err      error
	lastSync time.Time
	gotTerms []int
	gotForce bool
}

func (f *fakeSyncer) SyncAll(_ context.Context, terms []int, force bool) ([]*models.SyncReport, error) {
	f.gotTerms = terms
	f.gotForce = force
	return f.reports, f.err
}

func (f *fakeSyncer) LastSyncTime() time.Time { return f.lastSync }

type fakeAnalytics struct {
	results map[string][]byte
	err     error
}

func (f *fakeAnalytics) Cached(_ context.Context, _ int, key string) ([]byte, time.Time, error) {
	if f.err != nil {
		return nil, time.Time{}, f.err
	}
	data, ok := f.results[key]
	if !ok {
		return nil, time.Time{}, fmt.Errorf("analytics %q: %w", key, database.ErrNotFound)
	}
	return data, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), nil
}

func (f *fakeAnalytics) Recompute(_ context.Context, term int) (*models.AnalyticsSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.AnalyticsSnapshot{Term: term, Complete: true}, nil
}

type fakeValidator struct {
	report *models.ValidationReport
	err    error
}

func (f *fakeValidator) ValidateTerm(_ context.Context, term int) (*models.ValidationReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type testServer struct {
	reader    *fakeReader
	syncer    *fakeSyncer
	analytics *fakeAnalytics
	validator *fakeValidator
	srv       *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		reader: &fakeReader{
			terms: []models.Term{{Num: 10, Current: true}},
			clubs: []models.Club{{ID: "10_KO", TermNum: 10, Abbr: "KO"}},
		},
		syncer:    &fakeSyncer{},
		analytics: &fakeAnalytics{results: map[string][]byte{"cohesion": []byte(`[{"club":"KO"}]`)}},
		validator: &fakeValidator{report: &models.ValidationReport{Term: 10, Valid: true}},
	}
	ts.srv = httptest.NewServer(Routes(NewHandler(ts.reader, ts.syncer, ts.analytics, ts.validator)))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body []byte) (*http.Response, *APIResponse) {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, &envelope
}

func TestHealthHealthy(t *testing.T) {
	ts := newTestServer(t)
	ts.syncer.lastSync = time.Now()

	resp, envelope := ts.do(t, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !envelope.Success {
		t.Error("health envelope not successful")
	}
}

func TestHealthDegradedWhenDBUnreachable(t *testing.T) {
	ts := newTestServer(t)
	ts.reader.pingErr = errors.New("io error")

	resp, _ := ts.do(t, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestTermNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, envelope := ts.do(t, http.MethodGet, "/api/v1/terms/99", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeNotFound {
		t.Errorf("error envelope = %+v", envelope.Error)
	}
}

func TestTermParamValidation(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/terms/abc/clubs", "/api/v1/terms/0/clubs", "/api/v1/terms/-3/clubs"} {
		resp, envelope := ts.do(t, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, resp.StatusCode)
		}
		if envelope.Error == nil || envelope.Error.Code != ErrCodeBadRequest {
			t.Errorf("%s: error = %+v", path, envelope.Error)
		}
	}
}

func TestClubsList(t *testing.T) {
	ts := newTestServer(t)

	resp, envelope := ts.do(t, http.MethodGet, "/api/v1/terms/10/clubs", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	raw, _ := json.Marshal(envelope.Data)
	var clubs []models.Club
	if err := json.Unmarshal(raw, &clubs); err != nil {
		t.Fatalf("decode clubs: %v", err)
	}
	if len(clubs) != 1 || clubs[0].Abbr != "KO" {
		t.Errorf("clubs = %+v", clubs)
	}
}

func TestListErrorIs500(t *testing.T) {
	ts := newTestServer(t)
	ts.reader.listErr = errors.New("io error")

	resp, envelope := ts.do(t, http.MethodGet, "/api/v1/terms/10/votings", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeInternalError {
		t.Errorf("error = %+v", envelope.Error)
	}
}

func TestAnalyticsCachedResult(t *testing.T) {
	ts := newTestServer(t)

	resp, envelope := ts.do(t, http.MethodGet, "/api/v1/terms/10/analytics/cohesion", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	raw, _ := json.Marshal(envelope.Data)
	var payload analyticsResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode analytics payload: %v", err)
	}
	if payload.Key != "cohesion" || payload.Term != 10 {
		t.Errorf("payload = %+v", payload)
	}
	if string(payload.Result) != `[{"club":"KO"}]` {
		t.Errorf("result passthrough mangled: %s", payload.Result)
	}
}

func TestAnalyticsUnknownKeyIs404(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/v1/terms/10/analytics/nonsense", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRecompute(t *testing.T) {
	ts := newTestServer(t)

	resp, envelope := ts.do(t, http.MethodPost, "/api/v1/terms/10/analytics/recompute", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	raw, _ := json.Marshal(envelope.Data)
	var snapshot models.AnalyticsSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Term != 10 || !snapshot.Complete {
		t.Errorf("snapshot = %+v", snapshot)
	}
}

func TestValidate(t *testing.T) {
	ts := newTestServer(t)

	resp, envelope := ts.do(t, http.MethodPost, "/api/v1/terms/10/validate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	raw, _ := json.Marshal(envelope.Data)
	var report models.ValidationReport
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Term != 10 || !report.Valid {
		t.Errorf("report = %+v", report)
	}
}

func TestTriggerSyncPassesBody(t *testing.T) {
	ts := newTestServer(t)

	body := []byte(`{"terms":[9,10],"force":true}`)
	resp, _ := ts.do(t, http.MethodPost, "/api/v1/sync", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(ts.syncer.gotTerms) != 2 || !ts.syncer.gotForce {
		t.Errorf("syncer got terms=%v force=%v", ts.syncer.gotTerms, ts.syncer.gotForce)
	}
}

func TestTriggerSyncEmptyBody(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/v1/sync", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ts.syncer.gotTerms != nil || ts.syncer.gotForce {
		t.Errorf("defaults not applied: terms=%v force=%v", ts.syncer.gotTerms, ts.syncer.gotForce)
	}
}

func TestTriggerSyncMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	resp, envelope := ts.do(t, http.MethodPost, "/api/v1/sync", []byte(`{"terms":`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeBadRequest {
		t.Errorf("error = %+v", envelope.Error)
	}
}

func TestTriggerSyncFailureStillReturnsReports(t *testing.T) {
	ts := newTestServer(t)
	ts.syncer.reports = []*models.SyncReport{{Term: 10, Status: models.SyncFatal}}
	ts.syncer.err = errors.New("store write failed")

	resp, envelope := ts.do(t, http.MethodPost, "/api/v1/sync", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	raw, _ := json.Marshal(envelope.Data)
	var reports []models.SyncReport
	if err := json.Unmarshal(raw, &reports); err != nil {
		t.Fatalf("decode reports: %v", err)
	}
	if len(reports) != 1 || reports[0].Status != models.SyncFatal {
		t.Errorf("reports = %+v", reports)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.srv.Client().Get(ts.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRequestIDHeaderPresent(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/v1/terms", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}
