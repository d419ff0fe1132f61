package doctor

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestCheckStateDirCreatesAndProbes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	res := checkStateDir(dir)
	if !res.Pass {
		t.Fatalf("state dir check failed: %s", res.Detail)
	}
}

func TestCheckStateDirEmpty(t *testing.T) {
	if res := checkStateDir(""); res.Pass {
		t.Fatalf("empty dir must fail")
	}
}

func TestCheckHTTPUpAndDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed) // up is up, even if it rejects GET
	}))
	defer srv.Close()

	if res := checkHTTP("svc", srv.URL); !res.Pass {
		t.Fatalf("reachable service reported down: %s", res.Detail)
	}

	srv.Close()
	if res := checkHTTP("svc", srv.URL); res.Pass {
		t.Fatalf("closed service reported up")
	}
}

func TestCheckFileMissing(t *testing.T) {
	if res := checkFile("model", filepath.Join(t.TempDir(), "missing.bin")); res.Pass {
		t.Fatalf("missing file must fail")
	}
}
