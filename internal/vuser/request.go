package vuser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sosnowski/swarm/internal/config"
)

// renderURL replaces each declared placeholder {name} in the template with
// its value from params (the empty string if absent), per spec §4.3 step 2.
func renderURL(tmpl string, args []string, params map[string]string) string {
	out := tmpl
	for _, arg := range args {
		value := params[arg]
		out = strings.ReplaceAll(out, "{"+arg+"}", value)
	}
	return out
}

// appendQuery appends query as application/x-www-form-urlencoded
// percent-encoded pairs to the already-interpolated URL, per spec §4.3 step
// 3. It returns an error only when the interpolated URL itself cannot be
// parsed — the "malformed URL template" case that aborts the whole virtual
// user per §4.3's user-outcome rule.
func appendQuery(rawURL string, query map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if len(query) == 0 {
		return u.String(), nil
	}

	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// buildTargetURL performs the full path-templating + query-composition
// pipeline for one RequestData against one RequestDetails.
func buildTargetURL(details config.RequestDetails, data config.RequestData) (string, error) {
	withPath := renderURL(details.URL, details.Args, data.Params)
	return appendQuery(withPath, data.Query)
}
