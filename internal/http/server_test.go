package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"honorarios/internal/cache"
	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/ports"
	"honorarios/internal/report"
	"honorarios/internal/services"
	"honorarios/internal/store/memory"
)

var testRetry = services.RetryPolicy{Attempts: 2, Delay: time.Millisecond}

type failingSink struct{}

func (failingSink) WriteSnapshot(context.Context, core.Snapshot) error {
	return errors.New("disk full")
}

// contendedStore reports contention on every client listing.
type contendedStore struct {
	ports.Store
}

func (contendedStore) ListClients(context.Context) ([]core.Client, error) {
	return nil, core.ErrContention
}

type testEnv struct {
	srv   *Server
	store ports.Store
}

func newTestEnv(t *testing.T, store ports.Store, sinks ...ports.SnapshotWriter) *testEnv {
	t.Helper()
	logger := applog.New(applog.Config{Level: slog.LevelError})

	reports := services.NewReconciler(store, testRetry, cache.NewVersioned[any](16, time.Minute), logger)
	snapshots := services.NewSnapshotService(store, testRetry, logger, sinks...)
	dispatcher := services.NewDispatcher(reports, snapshots, logger)

	srv := NewServer(":0", Dependencies{
		Clients:   services.NewClientService(store, testRetry, dispatcher, logger),
		Ledger:    services.NewLedger(store, services.LedgerConfig{}, testRetry, dispatcher, logger),
		Reports:   reports,
		Snapshots: snapshots,
		Renderer:  report.NewPDFRenderer(report.Options{OfficeName: "Escritório"}, logger),
		Status:    dispatcher,
	}, logger)
	return &testEnv{srv: srv, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

const mariaJSON = `{"name":"maria silva","phone":"11987654321","tax_id":"12345678901",
	"secret":"senha","case_type":"trabalhista","contracted_fee":"1.200,00","registered_on":"15/01/2024"}`

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, memory.New())
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id header", path)
		}
	}
}

func TestClientLifecycle(t *testing.T) {
	env := newTestEnv(t, memory.New())

	rr := env.do(t, http.MethodGet, "/clients/next-code", "")
	if got := decode[map[string]string](t, rr)["code"]; got != "0001" {
		t.Fatalf("next code = %q", got)
	}

	rr = env.do(t, http.MethodPost, "/clients", mariaJSON)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	created := decode[clientView](t, rr)
	if created.Code != "0001" || created.Name != "MARIA SILVA" || created.Phone != "(11) 98765-4321" {
		t.Errorf("unexpected client %+v", created)
	}
	if created.ContractedFee.Cents != 120000 {
		t.Errorf("fee = %d", created.ContractedFee.Cents)
	}

	rr = env.do(t, http.MethodGet, "/clients?q=silva", "")
	list := decode[[]clientView](t, rr)
	if len(list) != 1 || list[0].Secret == "SENHA" {
		t.Errorf("search result %+v", list)
	}

	rr = env.do(t, http.MethodPut, "/clients/0001", strings.Replace(mariaJSON, "1.200,00", "1500", 1))
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}
	if got := decode[clientView](t, rr).ContractedFee.Cents; got != 150000 {
		t.Errorf("updated fee = %d", got)
	}

	rr = env.do(t, http.MethodDelete, "/clients/0001", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/clients/0001", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("get deleted status=%d", rr.Code)
	}
}

func TestCreateClientErrors(t *testing.T) {
	env := newTestEnv(t, memory.New())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"name":`, http.StatusBadRequest},
		{"short phone", strings.Replace(mariaJSON, "11987654321", "1198765", 1), http.StatusUnprocessableEntity},
		{"bad tax id", strings.Replace(mariaJSON, "12345678901", "123", 1), http.StatusUnprocessableEntity},
		{"negative fee", strings.Replace(mariaJSON, "1.200,00", "-5", 1), http.StatusUnprocessableEntity},
		{"bad date", strings.Replace(mariaJSON, "15/01/2024", "31/02/2024", 1), http.StatusUnprocessableEntity},
		{"empty name", strings.Replace(mariaJSON, "maria silva", "", 1), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/clients", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body)
			}
		})
	}

}

func TestCreateClientIgnoresBodyCode(t *testing.T) {
	env := newTestEnv(t, memory.New())

	for i, code := range []string{"7", "ABC", "0001"} {
		body := strings.Replace(mariaJSON, `{"name"`, `{"code":"`+code+`","name"`, 1)
		rr := env.do(t, http.MethodPost, "/clients", body)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create code=%q status=%d body=%s", code, rr.Code, rr.Body)
		}
		want := fmt.Sprintf("%04d", i+1)
		if got := decode[clientView](t, rr).Code; got != want {
			t.Errorf("create code=%q stored as %q, want %q", code, got, want)
		}
		if loc := rr.Header().Get("Location"); loc != "/clients/"+want {
			t.Errorf("location = %q", loc)
		}
	}

	rr := env.do(t, http.MethodGet, "/clients/next-code", "")
	if got := decode[map[string]string](t, rr)["code"]; got != "0004" {
		t.Errorf("next code = %q", got)
	}
	if rr := env.do(t, http.MethodGet, "/clients/ABC", ""); rr.Code != http.StatusNotFound {
		t.Errorf("get ABC status=%d", rr.Code)
	}
}

func TestErrorResponseStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", core.ErrClientNotFound, http.StatusNotFound},
		{"duplicate", fmt.Errorf("create client: %w", core.ErrDuplicateClient), http.StatusConflict},
		{"busy", core.ErrStorageBusy, http.StatusServiceUnavailable},
		{"validation", fmt.Errorf("validate client: %w", core.ErrInvalidPhone), http.StatusUnprocessableEntity},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorResponse(tt.err).statusCode; got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInstallmentFlow(t *testing.T) {
	env := newTestEnv(t, memory.New())
	if rr := env.do(t, http.MethodPost, "/clients", mariaJSON); rr.Code != http.StatusCreated {
		t.Fatalf("create client status=%d", rr.Code)
	}

	rr := env.do(t, http.MethodPost, "/clients/0001/installments/split", `{"count":3,"first_due_date":"01/03/2024"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("split status=%d body=%s", rr.Code, rr.Body)
	}
	split := decode[splitView](t, rr)
	if len(split.Installments) != 3 || split.Drift.Cents != 0 {
		t.Fatalf("unexpected split %+v", split)
	}
	if split.Installments[1].DueDate != "31/03/2024" {
		t.Errorf("second due date = %s", split.Installments[1].DueDate)
	}

	rr = env.do(t, http.MethodPost, "/clients/0001/installments/split", `{"count":2}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("second split status=%d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/clients/0001/installments", `{"amount":"0,01","due_date":"2024-06-01"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("append over contract status=%d", rr.Code)
	}

	rr = env.do(t, http.MethodPut, "/clients/0001/installments/2",
		`{"amount":"400","payment_date":"20/03/2024","payment_method":"PIX","paid":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}
	if inst := decode[installmentView](t, rr); !inst.Paid || inst.DueDate != "31/03/2024" {
		t.Errorf("unexpected installment %+v", inst)
	}

	rr = env.do(t, http.MethodPut, "/clients/0001/installments/9", `{"amount":"1"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing installment status=%d", rr.Code)
	}
	rr = env.do(t, http.MethodPut, "/clients/0001/installments/x", `{"amount":"1"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad number status=%d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/clients/0001", "")
	ledger := decode[ledgerView](t, rr)
	if ledger.Paid.Cents != 40000 || ledger.Outstanding.Cents != 80000 || ledger.Mismatch {
		t.Errorf("unexpected ledger %+v", ledger)
	}

	rr = env.do(t, http.MethodGet, "/reports/paid?month=march&year=2024", "")
	paid := decode[paidView](t, rr)
	if len(paid.Periods) != 1 || paid.Periods[0].MonthName != "March" || paid.Total.Formatted != "R$ 400,00" {
		t.Errorf("unexpected paid report %+v", paid)
	}

	rr = env.do(t, http.MethodGet, "/reports/receivable?month=abril", "")
	recv := decode[receivableView](t, rr)
	if recv.Total.Cents != 80000 || len(recv.Details) != 1 || recv.Details[0].ClientName != "MARIA SILVA" {
		t.Errorf("unexpected receivable report %+v", recv)
	}

	rr = env.do(t, http.MethodGet, "/reports/overdue", "")
	overdue := decode[overdueView](t, rr)
	if len(overdue.Rows) != 2 || overdue.Total.Cents != 80000 {
		t.Errorf("unexpected overdue report %+v", overdue)
	}

	rr = env.do(t, http.MethodGet, "/clients/0001/report.pdf", "")
	if rr.Code != http.StatusOK || !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("report status=%d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "relatorio_parcelas_0001.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestDeleteLeavesOrphans(t *testing.T) {
	env := newTestEnv(t, memory.New())
	env.do(t, http.MethodPost, "/clients", mariaJSON)
	env.do(t, http.MethodPost, "/clients/0001/installments/split", `{"count":2}`)

	rr := env.do(t, http.MethodDelete, "/clients/0001", "")
	body := decode[map[string]any](t, rr)
	if body["leftover_installments"] != float64(2) {
		t.Fatalf("unexpected delete body %v", body)
	}

	orphans := decode[[]installmentView](t, env.do(t, http.MethodGet, "/orphans", ""))
	if len(orphans) != 2 {
		t.Fatalf("expected 2 orphans, got %d", len(orphans))
	}

	rr = env.do(t, http.MethodDelete, "/clients/0001/installments", "")
	if got := decode[map[string]any](t, rr)["removed"]; got != float64(2) {
		t.Errorf("removed = %v", got)
	}
	if orphans := decode[[]installmentView](t, env.do(t, http.MethodGet, "/orphans", "")); len(orphans) != 0 {
		t.Errorf("orphans left after cleanup: %d", len(orphans))
	}
}

func TestPeriodFilterValidation(t *testing.T) {
	env := newTestEnv(t, memory.New())
	for _, q := range []string{"month=foo", "month=13", "year=abc"} {
		rr := env.do(t, http.MethodGet, "/reports/paid?"+q, "")
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status=%d", q, rr.Code)
		}
	}
	rr := env.do(t, http.MethodGet, "/reports/receivable?month=all&year=all", "")
	if rr.Code != http.StatusOK {
		t.Errorf("all filter status=%d", rr.Code)
	}
}

func TestSnapshotDownload(t *testing.T) {
	env := newTestEnv(t, memory.New())
	env.do(t, http.MethodPost, "/clients", mariaJSON)

	rr := env.do(t, http.MethodGet, "/snapshot.xlsx", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rr.Body.Len() == 0 {
		t.Error("empty workbook")
	}
}

func TestSnapshotFailureDoesNotFailMutation(t *testing.T) {
	env := newTestEnv(t, memory.New(), failingSink{})

	rr := env.do(t, http.MethodPost, "/clients", mariaJSON)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d", rr.Code)
	}
	if rr.Header().Get("X-Snapshot-Error") == "" {
		t.Error("expected snapshot error header")
	}

	health := decode[map[string]any](t, env.do(t, http.MethodGet, "/healthz", ""))
	snap, ok := health["snapshot"].(map[string]any)
	if !ok || !strings.Contains(snap["error"].(string), "disk full") {
		t.Errorf("health snapshot status %v", health["snapshot"])
	}

	if _, err := env.store.GetClient(context.Background(), "0001"); err != nil {
		t.Errorf("client should be stored: %v", err)
	}
}

func TestStorageBusyMapsTo503(t *testing.T) {
	env := newTestEnv(t, contendedStore{Store: memory.New()})
	rr := env.do(t, http.MethodGet, "/clients", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, memory.New())
	rr := env.do(t, http.MethodPatch, "/clients", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status=%d", rr.Code)
	}
}
