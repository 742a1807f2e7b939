package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
)

type recordedCall struct {
	method string
	path   string
	query  string
	body   string
}

// fakeSheets serves the subset of the Sheets v4 API used by Mirror.
type fakeSheets struct {
	mu     sync.Mutex
	titles []string
	calls  []recordedCall
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
	titles := append([]string(nil), f.titles...)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		sheets := make([]map[string]any, 0, len(titles))
		for _, t := range titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func (f *fakeSheets) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func newTestMirror(t *testing.T, fake http.Handler) *Mirror {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	m, err := NewWithService(svc, "sheet-id", applog.New(applog.Config{Level: slog.LevelError}))
	if err != nil {
		t.Fatalf("NewWithService: %v", err)
	}
	return m
}

func testSnapshot() core.Snapshot {
	return core.Snapshot{
		Clients: []core.Client{{Code: "0001", Name: "MARIA SILVA", Secret: "SENHA", RegisteredOn: core.NewDate(2024, 1, 15)}},
		Installments: []core.Installment{
			{ClientCode: "0001", Number: 1, Amount: core.Money{Cents: 40000}, DueDate: core.NewDate(2024, 3, 1)},
		},
	}
}

func TestMirrorWritesBothSheets(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Clientes", "Parcelas"}}
	m := newTestMirror(t, fake)

	if err := m.WriteSnapshot(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	calls := fake.recorded()
	var clears, updates int
	for _, c := range calls {
		switch {
		case strings.HasSuffix(c.path, ":clear"):
			clears++
		case c.method == http.MethodPut:
			updates++
			if !strings.Contains(c.query, "valueInputOption=RAW") {
				t.Errorf("update without RAW input option: %q", c.query)
			}
			if strings.Contains(c.body, "SENHA") {
				t.Error("secret sent to the spreadsheet in clear")
			}
		case strings.HasSuffix(c.path, ":batchUpdate"):
			t.Error("no sheet should be created when both exist")
		}
	}
	if clears != 2 || updates != 2 {
		t.Errorf("expected 2 clears and 2 updates, got %d and %d", clears, updates)
	}
}

func TestMirrorCreatesMissingSheets(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}}
	m := newTestMirror(t, fake)

	if err := m.WriteSnapshot(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	var batch *recordedCall
	for _, c := range fake.recorded() {
		if strings.HasSuffix(c.path, ":batchUpdate") {
			batch = &c
		}
	}
	if batch == nil {
		t.Fatal("expected a batchUpdate adding the sheets")
	}
	if !strings.Contains(batch.body, "Clientes") || !strings.Contains(batch.body, "Parcelas") {
		t.Errorf("batchUpdate body missing sheet titles: %s", batch.body)
	}
}

func TestMirrorPropagatesAPIErrors(t *testing.T) {
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	})
	m := newTestMirror(t, failing)

	err := m.WriteSnapshot(context.Background(), testSnapshot())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "get spreadsheet") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewWithServiceValidation(t *testing.T) {
	if _, err := NewWithService(&gsheet.Service{}, " ", nil); err == nil {
		t.Error("expected error for empty spreadsheet id")
	}
	if _, err := NewWithService(nil, "id", nil); err == nil {
		t.Error("expected error for nil service")
	}
}

func TestCredentials(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		inline  string
		file    string
		want    string
		wantErr error
	}{
		{name: "inline wins", inline: `{"inline":true}`, file: file, want: `{"inline":true}`},
		{name: "file", file: file, want: `{"type":"service_account"}`},
		{name: "none", wantErr: ErrMissingCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Credentials(tt.inline, tt.file)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := Credentials("", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
