package vuser

import (
	"errors"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/sosnowski/swarm/internal/config"
)

// requestTimeout is the fixed per-request wall-clock cap from spec §4.3.
// It is a var, not a const, solely so tests can shrink it rather than
// sleeping the full ten seconds to exercise the Timeout classification.
var requestTimeout = 10 * time.Second

// dispatchOnce builds and fires a single HTTP request against the given
// concrete URL, classifying the outcome per spec §4.3's dispatch table.
func dispatchOnce(client *fasthttp.Client, cookies *CookieStore, id, targetURL string, method config.Method, data config.RequestData) TaskResult {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(string(method))
	req.SetRequestURI(targetURL)

	for key, value := range data.Headers {
		req.Header.Set(key, value)
	}
	if !cookies.Empty() {
		req.Header.Set("cookie", cookies.Header())
	}
	applyBody(req, data.Body)

	started := time.Now()
	err := client.DoTimeout(req, resp, requestTimeout)
	durationMS := time.Since(started).Milliseconds()

	result := TaskResult{ID: id, URL: targetURL, DurationMS: durationMS}

	switch {
	case err == nil:
		classifyStatus(&result, resp.StatusCode())
		observeCookies(cookies, resp)
	case errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout):
		result.Error = true
		result.ErrorKind = ErrorTimeout
	default:
		result.Error = true
		result.ErrorKind = ErrorConnection
	}

	return result
}

func applyBody(req *fasthttp.Request, body *config.Body) {
	if body == nil {
		return
	}
	switch body.Kind {
	case config.BodyJSON:
		req.Header.SetContentType("application/json")
		req.SetBodyString(body.Content)
	case config.BodyText:
		req.Header.SetContentType("text/plain")
		req.SetBodyString(body.Content)
	}
}

func classifyStatus(result *TaskResult, status int) {
	switch {
	case status >= 200 && status < 300:
		result.Error = false
	case status >= 400 && status < 500:
		result.Error = true
		result.ErrorKind = ErrorRequest4xx
	case status >= 500 && status < 600:
		result.Error = true
		result.ErrorKind = ErrorRequest5xx
	case status <= 0:
		// fasthttp only returns status<=0 alongside a non-nil error; this
		// branch exists as a defensive fallback in case that ever changes.
		result.Error = true
		result.ErrorKind = ErrorInternal
	default:
		result.Error = true
		result.ErrorKind = ErrorRequestOther
	}
}

// observeCookies records every Set-Cookie response header into the store.
func observeCookies(store *CookieStore, resp *fasthttp.Response) {
	resp.Header.VisitAll(func(key, value []byte) {
		if string(key) == "Set-Cookie" {
			store.Observe(string(value))
		}
	})
}
