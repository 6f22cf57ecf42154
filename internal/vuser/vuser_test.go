package vuser

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sosnowski/swarm/internal/config"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestCookieStoreDedupesRepeatedValue(t *testing.T) {
	store := NewCookieStore()
	store.Observe("sid=abc")
	store.Observe("sid=abc")

	if got := store.Header(); got != "sid=abc" {
		t.Errorf("expected single entry %q, got %q", "sid=abc", got)
	}
}

func TestCookieStoreOverwritesSameName(t *testing.T) {
	store := NewCookieStore()
	store.Observe("sid=abc")
	store.Observe("sid=def")

	if got := store.Header(); got != "sid=def" {
		t.Errorf("expected later value to win, got %q", got)
	}
}

func TestRenderURLSubstitutesPlaceholders(t *testing.T) {
	got := renderURL("http://host/{a}/{b}", []string{"a", "b"}, map[string]string{"a": "1", "b": "2"})
	want := "http://host/1/2"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRenderURLMissingParamIsEmptyString(t *testing.T) {
	got := renderURL("http://host/{a}", []string{"a"}, nil)
	want := "http://host/"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestBuildTargetURLRoundTripsQuery(t *testing.T) {
	details := config.RequestDetails{URL: "http://host/x/{p}", Args: []string{"p"}}
	data := config.RequestData{
		Params: map[string]string{"p": "v"},
		Query:  map[string]string{"b": "2", "a": "1"},
	}

	built, err := buildTargetURL(details, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "http://host/x/v?a=1&b=2"
	if built != want {
		t.Errorf("expected %q, got %q", want, built)
	}
}

func TestUserRunSuccessfulGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	details := config.RequestDetails{
		URL:    srv.URL + "/ping",
		Method: config.MethodGet,
		Repeat: 5,
	}
	schedule := config.Schedule{Tasks: []config.Task{{Request: &details}}}

	outcome := New(schedule, testLogger()).Run()
	if !outcome.OK() {
		t.Fatalf("expected Ok outcome, got err=%v", outcome.Err)
	}
	if len(outcome.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(outcome.Results))
	}
	for _, r := range outcome.Results {
		if r.Error {
			t.Errorf("expected no error, got error_kind=%v", r.ErrorKind)
		}
		if r.ID != details.URL {
			t.Errorf("expected endpoint id %q, got %q", details.URL, r.ID)
		}
	}
}

func TestUserRunClassifies4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	details := config.RequestDetails{URL: srv.URL + "/missing", Method: config.MethodGet, Repeat: 3}
	schedule := config.Schedule{Tasks: []config.Task{{Request: &details}}}

	outcome := New(schedule, testLogger()).Run()
	if !outcome.OK() {
		t.Fatalf("expected Ok outcome, got err=%v", outcome.Err)
	}
	for _, r := range outcome.Results {
		if !r.Error || r.ErrorKind != ErrorRequest4xx {
			t.Errorf("expected Request4xx, got error=%v kind=%v", r.Error, r.ErrorKind)
		}
	}
}

func TestUserRunClassifiesTimeout(t *testing.T) {
	prev := requestTimeout
	requestTimeout = 20 * time.Millisecond
	defer func() { requestTimeout = prev }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	details := config.RequestDetails{URL: srv.URL + "/slow", Method: config.MethodGet}
	schedule := config.Schedule{Tasks: []config.Task{{Request: &details}}}

	outcome := New(schedule, testLogger()).Run()
	if !outcome.OK() {
		t.Fatalf("expected Ok outcome, got err=%v", outcome.Err)
	}
	if len(outcome.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(outcome.Results))
	}
	if outcome.Results[0].ErrorKind != ErrorTimeout {
		t.Errorf("expected Timeout, got %v", outcome.Results[0].ErrorKind)
	}
}

func TestUserRunCookieEcho(t *testing.T) {
	var sawCookie string
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.Header().Set("Set-Cookie", "sid=abc123")
		} else {
			sawCookie = r.Header.Get("Cookie")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	details := config.RequestDetails{URL: srv.URL + "/cookie", Method: config.MethodGet, Repeat: 2}
	schedule := config.Schedule{Tasks: []config.Task{{Request: &details}}}

	outcome := New(schedule, testLogger()).Run()
	if !outcome.OK() {
		t.Fatalf("expected Ok outcome, got err=%v", outcome.Err)
	}
	if sawCookie != "sid=abc123" {
		t.Errorf("expected second request to carry cookie %q, got %q", "sid=abc123", sawCookie)
	}
}

func TestUserRunWaitStepEmitsNoResult(t *testing.T) {
	wait := 10 * time.Millisecond
	schedule := config.Schedule{Tasks: []config.Task{{Wait: &wait}}}

	outcome := New(schedule, testLogger()).Run()
	if !outcome.OK() {
		t.Fatalf("expected Ok outcome, got err=%v", outcome.Err)
	}
	if len(outcome.Results) != 0 {
		t.Errorf("expected no results for a Wait-only schedule, got %d", len(outcome.Results))
	}
}
