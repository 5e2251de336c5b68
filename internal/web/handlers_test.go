package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/trpdata/salesloader/internal/config"
	"github.com/trpdata/salesloader/internal/ingest"
	"github.com/trpdata/salesloader/internal/store"
)

const (
	testUser = "admin"
	testPass = "s3cret"
)

// fakeStore is an in-memory SalesStore for handler tests.
type fakeStore struct {
	records map[int64]store.SalesRecord
	nextID  int64
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[int64]store.SalesRecord{}, nextID: 1}
}

func (f *fakeStore) List(_ context.Context, limit int) ([]store.SalesRecord, error) {
	out := []store.SalesRecord{}
	for id := int64(1); id < f.nextID && len(out) < limit; id++ {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (*store.SalesRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeStore) Insert(_ context.Context, p store.SalesRecordParams) (*store.SalesRecord, error) {
	rec := store.SalesRecord{
		ID:       f.nextID,
		Outlet:   p.Outlet,
		Date:     p.Date,
		Category: p.Category,
		Quantity: p.Quantity,
	}
	f.records[rec.ID] = rec
	f.nextID++
	return &rec, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, p store.SalesRecordParams) (*store.SalesRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Outlet == nil && p.Date == nil && p.Category == nil && p.Quantity == nil {
		return nil, store.ErrNoFields
	}
	if p.Outlet != nil {
		rec.Outlet = p.Outlet
	}
	if p.Quantity != nil {
		rec.Quantity = p.Quantity
	}
	f.records[id] = rec
	return &rec, nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeStore) RowCount(context.Context) (int64, error) {
	return int64(len(f.records)), nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

// fakeIngestor records what it was asked to run.
type fakeIngestor struct {
	headers []string
	rows    [][]string
	err     error
}

func (f *fakeIngestor) Run(_ context.Context, headers []string, rows [][]string) (*ingest.RunReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.headers = headers
	f.rows = rows
	return &ingest.RunReport{
		RunID:  "test-run",
		Rows:   len(rows),
		Loaded: int64(len(rows)),
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Minute},
		Auth:   config.AuthConfig{User: testUser, Password: testPass},
		Ingest: config.IngestConfig{
			Schema:        "public",
			Table:         "TRP",
			MaxUploadSize: 1 << 20,
			Timeout:       time.Minute,
		},
		Rate: config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(st SalesStore, ing Ingestor) *Server {
	return NewServer(st, ing, testConfig())
}

func doRequest(s *Server, method, path string, body *bytes.Buffer, auth bool, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if auth {
		req.SetBasicAuth(testUser, testPass)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeIngestor{})

	rr := doRequest(s, http.MethodGet, "/trp", nil, false, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Basic") {
		t.Errorf("WWW-Authenticate = %q, want Basic challenge", got)
	}
}

func TestAuthWrongPassword(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeIngestor{})

	req := httptest.NewRequest(http.MethodGet, "/trp", nil)
	req.SetBasicAuth(testUser, "wrong")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestHealthCheckUnauthenticated(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeIngestor{})

	rr := doRequest(s, http.MethodGet, "/health-check", nil, false, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q, want healthy", body["status"])
	}
}

func TestHealthCheckUnhealthy(t *testing.T) {
	st := newFakeStore()
	st.pingErr = errors.New("connection refused")
	s := newTestServer(st, &fakeIngestor{})

	rr := doRequest(s, http.MethodGet, "/health-check", nil, false, "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestCreateAndGetRecord(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeIngestor{})

	payload := `{"outlet":"Cafe One","date":"2024-03-05","category":"Beverages","quantity":3}`
	rr := doRequest(s, http.MethodPost, "/trp", bytes.NewBufferString(payload), true, "application/json")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rr.Code, rr.Body.String())
	}

	var created store.SalesRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == 0 || created.Outlet == nil || *created.Outlet != "Cafe One" {
		t.Errorf("created = %+v, want assigned id and outlet", created)
	}

	rr = doRequest(s, http.MethodGet, fmt.Sprintf("/trp/%d", created.ID), nil, true, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rr.Code)
	}
}

func TestCreateRecordMissingRequiredField(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeIngestor{})

	payload := `{"outlet":"Cafe One","date":"2024-03-05"}`
	rr := doRequest(s, http.MethodPost, "/trp", bytes.NewBufferString(payload), true, "application/json")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestCreateRecordBadDate(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeIngestor{})

	payload := `{"outlet":"Cafe One","date":"05-03-2024","category":"Beverages","quantity":3}`
	rr := doRequest(s, http.MethodPost, "/trp", bytes.NewBufferString(payload), true, "application/json")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "YYYY-MM-DD") {
		t.Errorf("body = %s, want date format hint", rr.Body.String())
	}
}

func TestGetRecordNotFound(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeIngestor{})

	rr := doRequest(s, http.MethodGet, "/trp/99", nil, true, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", resp.Code)
	}
}

func TestUpdateRecordNoFields(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(st, &fakeIngestor{})

	outlet := "Cafe One"
	date := "2024-03-05"
	cat := "Beverages"
	qty := int64(3)
	st.Insert(context.Background(), store.SalesRecordParams{Outlet: &outlet, Date: &date, Category: &cat, Quantity: &qty})

	rr := doRequest(s, http.MethodPut, "/trp/1", bytes.NewBufferString(`{}`), true, "application/json")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteRecord(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(st, &fakeIngestor{})

	outlet := "Cafe One"
	date := "2024-03-05"
	cat := "Beverages"
	qty := int64(3)
	st.Insert(context.Background(), store.SalesRecordParams{Outlet: &outlet, Date: &date, Category: &cat, Quantity: &qty})

	rr := doRequest(s, http.MethodDelete, "/trp/1", nil, true, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}

	rr = doRequest(s, http.MethodDelete, "/trp/1", nil, true, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rr.Code)
	}
}

func TestListRecordsLimit(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(st, &fakeIngestor{})

	for i := 0; i < 5; i++ {
		outlet := fmt.Sprintf("Cafe %d", i)
		st.Insert(context.Background(), store.SalesRecordParams{Outlet: &outlet})
	}

	rr := doRequest(s, http.MethodGet, "/trp?limit=2", nil, true, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var records []store.SalesRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("len = %d, want 2", len(records))
	}

	rr = doRequest(s, http.MethodGet, "/trp?limit=bogus", nil, true, "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid limit status = %d, want 400", rr.Code)
	}
}

func uploadRequest(t *testing.T, filename, contents string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(contents)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadCSV(t *testing.T) {
	ing := &fakeIngestor{}
	s := newTestServer(newFakeStore(), ing)

	body, contentType := uploadRequest(t, "sales.csv",
		"Outlet,Date,Quantity\nCafe One,05-03-2024,3\n")
	rr := doRequest(s, http.MethodPost, "/trp/upload", body, true, contentType)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var report ingest.RunReport
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Loaded != 1 {
		t.Errorf("loaded = %d, want 1", report.Loaded)
	}
	if len(ing.headers) != 3 || ing.headers[0] != "Outlet" {
		t.Errorf("ingestor headers = %v, want parsed CSV header", ing.headers)
	}
}

func TestUploadUnsupportedFormat(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeIngestor{})

	body, contentType := uploadRequest(t, "sales.pdf", "not a spreadsheet")
	rr := doRequest(s, http.MethodPost, "/trp/upload", body, true, contentType)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestUploadLoaderFailureSurfacesError(t *testing.T) {
	loadErr := errors.New(`bulk load: ERROR: value too long for type`)
	s := newTestServer(newFakeStore(), &fakeIngestor{err: loadErr})

	body, contentType := uploadRequest(t, "sales.csv", "Outlet\nCafe One\n")
	rr := doRequest(s, http.MethodPost, "/trp/upload", body, true, contentType)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "value too long") {
		t.Errorf("body = %s, want database error verbatim", rr.Body.String())
	}
}
