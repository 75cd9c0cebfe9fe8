package cmd

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestSummarizeDoctorChecks(t *testing.T) {
	checks := []doctorCheck{
		{ID: "a", Status: doctorStatusOK},
		{ID: "b", Status: doctorStatusWarn},
		{ID: "c", Status: doctorStatusFail},
		{ID: "d", Status: doctorStatusOK},
	}

	summary := summarizeDoctorChecks(checks)
	if summary.Total != 4 || summary.OK != 2 || summary.Warn != 1 || summary.Fail != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		summary doctorSummary
		want    doctorStatus
	}{
		{
			name:    "all ok",
			summary: doctorSummary{Total: 2, OK: 2, Warn: 0, Fail: 0},
			want:    doctorStatusOK,
		},
		{
			name:    "warn only",
			summary: doctorSummary{Total: 2, OK: 1, Warn: 1, Fail: 0},
			want:    doctorStatusWarn,
		},
		{
			name:    "fail takes precedence",
			summary: doctorSummary{Total: 3, OK: 1, Warn: 1, Fail: 1},
			want:    doctorStatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overallStatus(tt.summary)
			if got != tt.want {
				t.Fatalf("overallStatus(%+v) = %q, want %q", tt.summary, got, tt.want)
			}
		})
	}
}

func TestCheckKeystoreFile(t *testing.T) {
	dir := t.TempDir()

	if got := checkKeystoreFile(""); got.Status != doctorStatusWarn {
		t.Errorf("empty path: status = %q, want warn", got.Status)
	}

	missing := filepath.Join(dir, "keystore.db")
	if got := checkKeystoreFile(missing); got.Status != doctorStatusWarn {
		t.Errorf("missing file: status = %q, want warn", got.Status)
	}

	if err := os.WriteFile(missing, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := checkKeystoreFile(missing); got.Status != doctorStatusOK {
		t.Errorf("existing file: status = %q, want ok", got.Status)
	}

	if got := checkKeystoreFile(dir); got.Status != doctorStatusFail {
		t.Errorf("directory: status = %q, want fail", got.Status)
	}
}

func TestCheckServiceReachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	// A 404 still means the service answered.
	if got := checkServiceReachable("backend.reachable", ts.URL, "fix it"); got.Status != doctorStatusOK {
		t.Errorf("responding service: status = %q, want ok", got.Status)
	}

	if got := checkServiceReachable("backend.reachable", "http://127.0.0.1:1/", "fix it"); got.Status != doctorStatusWarn {
		t.Errorf("unreachable service: status = %q, want warn", got.Status)
	}

	if got := checkServiceReachable("backend.reachable", "", "fix it"); got.Status != doctorStatusFail {
		t.Errorf("empty URL: status = %q, want fail", got.Status)
	}
}

func TestCheckHealthEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}

	if got := checkHealthEndpoint(u.Hostname(), port, 2); got.Status != doctorStatusOK {
		t.Errorf("running gateway: status = %q, want ok (%s)", got.Status, got.Message)
	}

	if got := checkHealthEndpoint("127.0.0.1", 1, 1); got.Status != doctorStatusWarn {
		t.Errorf("stopped gateway: status = %q, want warn", got.Status)
	}
}

func TestConfigSearchPaths(t *testing.T) {
	explicit := configSearchPaths("/tmp/custom.yaml")
	if len(explicit) != 1 || explicit[0] != "/tmp/custom.yaml" {
		t.Errorf("explicit path not honored: %v", explicit)
	}

	defaults := configSearchPaths("")
	if len(defaults) != 3 {
		t.Errorf("expected 3 default search paths, got %v", defaults)
	}
}
