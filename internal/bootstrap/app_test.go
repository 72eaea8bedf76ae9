package bootstrap

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Kayler1303/ACS-sub001/internal/shared/config"
)

func buildApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app, err := Build(config.Config{Env: "dev", MaxUploadBytes: 1 << 20})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func doJSON(t *testing.T, app *App, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Staff-Id", "staff-test")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestBuildDefaultsToInProcessBackends(t *testing.T) {
	app := buildApp(t)

	if app.Config.Env != "dev" {
		t.Fatalf("expected env dev, got %q", app.Config.Env)
	}
	if app.DB != nil {
		t.Fatal("expected no database connection")
	}
	if app.Router == nil {
		t.Fatal("expected router")
	}
	if app.DocumentsService == nil || app.VerificationsService == nil || app.OverridesService == nil {
		t.Fatal("expected services wired")
	}
	if app.DocumentProcessor == nil {
		t.Fatal("expected document processor wired")
	}
	if app.Locks == nil {
		t.Fatal("expected lock backend")
	}
	if app.OverridesService.Docs == nil {
		t.Fatal("expected override promotion wired to the document service")
	}
}

func TestHealthRouteIsPublic(t *testing.T) {
	app := buildApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestMetricsRouteIsPublic(t *testing.T) {
	app := buildApp(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "document_uploaded_total") {
		t.Fatalf("expected counters in metrics output, got %q", resp.Body.String())
	}
}

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	app := buildApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/overrides", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestMeReturnsStaffIdentity(t *testing.T) {
	app := buildApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/me", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
	var me struct {
		StaffID string `json:"staffId"`
		Role    string `json:"role"`
	}
	decodeBody(t, resp, &me)
	if me.StaffID != "staff-test" {
		t.Fatalf("expected staff-test, got %q", me.StaffID)
	}
	if me.Role != "admin" {
		t.Fatalf("expected admin role for header identity, got %q", me.Role)
	}
}

func TestLeaseVerificationLifecycle(t *testing.T) {
	app := buildApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/leases", map[string]any{
		"name":           "Harbor Point 4B",
		"leaseStartDate": "2025-01-01",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create lease: expected 201, got %d body=%s", resp.Code, resp.Body.String())
	}
	var lease struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &lease)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/leases/"+lease.ID+"/residents", map[string]any{
		"name":             "Ava Long",
		"annualizedIncome": 18000.0,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("add resident: expected 201, got %d body=%s", resp.Code, resp.Body.String())
	}
	var resident struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &resident)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/verifications", map[string]any{
		"leaseId": lease.ID,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("start verification: expected 201, got %d body=%s", resp.Code, resp.Body.String())
	}
	var verification struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &verification)
	if verification.Status != "IN_PROGRESS" {
		t.Fatalf("expected IN_PROGRESS, got %q", verification.Status)
	}

	base := "/api/v1/verifications/" + verification.ID

	resp = doJSON(t, app, http.MethodPatch, base+"/residents/"+resident.ID+"/no-income", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("no-income: expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
	var declared struct {
		HasNoIncome     bool `json:"hasNoIncome"`
		IncomeFinalized bool `json:"incomeFinalized"`
	}
	decodeBody(t, resp, &declared)
	if !declared.HasNoIncome || !declared.IncomeFinalized {
		t.Fatalf("expected finalized no-income resident, got %+v", declared)
	}

	// Declared 18000 vs verified 0 leaves an unresolved discrepancy.
	resp = doJSON(t, app, http.MethodPatch, base, map[string]string{"status": "FINALIZED"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("finalize with discrepancy: expected 409, got %d body=%s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, app, http.MethodGet, base+"/discrepancies", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("discrepancies: expected 200, got %d", resp.Code)
	}
	var report struct {
		Ready         bool `json:"ready"`
		Discrepancies []struct {
			ResidentID string  `json:"residentId"`
			Difference float64 `json:"difference"`
		} `json:"discrepancies"`
	}
	decodeBody(t, resp, &report)
	if !report.Ready || len(report.Discrepancies) != 1 {
		t.Fatalf("expected one discrepancy, got %+v", report)
	}
	if report.Discrepancies[0].Difference != 18000 {
		t.Fatalf("expected difference 18000, got %v", report.Discrepancies[0].Difference)
	}

	resp = doJSON(t, app, http.MethodPost, base+"/residents/"+resident.ID+"/discrepancy", map[string]string{
		"resolution": "ACCEPT_VERIFIED",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("resolve discrepancy: expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, app, http.MethodPatch, base, map[string]string{"status": "FINALIZED"})
	if resp.Code != http.StatusOK {
		t.Fatalf("finalize: expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
	decodeBody(t, resp, &verification)
	if verification.Status != "FINALIZED" {
		t.Fatalf("expected FINALIZED, got %q", verification.Status)
	}

	resp = doJSON(t, app, http.MethodGet, base, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("snapshot: expected 200, got %d", resp.Code)
	}
	var snapshot struct {
		Status    string `json:"status"`
		Residents []struct {
			ID string `json:"id"`
		} `json:"residents"`
	}
	decodeBody(t, resp, &snapshot)
	if snapshot.Status != "FINALIZED" || len(snapshot.Residents) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestStartConflictCarriesExistingVerification(t *testing.T) {
	app := buildApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/leases", map[string]any{
		"name":           "Cedar Mill 2A",
		"leaseStartDate": "2025-03-01",
	})
	var lease struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &lease)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/verifications", map[string]any{"leaseId": lease.ID})
	if resp.Code != http.StatusCreated {
		t.Fatalf("first start: expected 201, got %d", resp.Code)
	}
	var first struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &first)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/verifications", map[string]any{"leaseId": lease.ID})
	if resp.Code != http.StatusConflict {
		t.Fatalf("second start: expected 409, got %d body=%s", resp.Code, resp.Body.String())
	}
	var conflict struct {
		Error struct {
			Details struct {
				ExistingVerificationID string `json:"existingVerificationId"`
			} `json:"details"`
		} `json:"error"`
	}
	decodeBody(t, resp, &conflict)
	if conflict.Error.Details.ExistingVerificationID != first.ID {
		t.Fatalf("expected existing id %q, got %q", first.ID, conflict.Error.Details.ExistingVerificationID)
	}
}
