package udns

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ListOptions are the paging, sorting, and search parameters shared by the
// list endpoints. Zero values are omitted.
type ListOptions struct {
	// Q holds search terms, serialized as space-separated key:value pairs
	// (e.g. name:foo zone_type:PRIMARY).
	Q       map[string]string
	Sort    string
	Reverse *bool
	Offset  int
	Limit   int
	Cursor  string // v3 cursor paging
}

// Values encodes the options as query parameters.
func (o *ListOptions) Values() url.Values {
	v := url.Values{}
	if o == nil {
		return v
	}

	if len(o.Q) > 0 {
		v.Set("q", searchTerms(o.Q))
	}

	if o.Sort != "" {
		v.Set("sort", o.Sort)
	}

	if o.Reverse != nil {
		v.Set("reverse", strconv.FormatBool(*o.Reverse))
	}

	if o.Offset > 0 {
		v.Set("offset", strconv.Itoa(o.Offset))
	}

	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}

	if o.Cursor != "" {
		v.Set("cursor", o.Cursor)
	}

	return v
}

// searchTerms joins q as "k:v k:v" with keys sorted for a stable URL.
func searchTerms(q map[string]string) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	terms := make([]string, 0, len(keys))
	for _, k := range keys {
		terms = append(terms, k+":"+q[k])
	}

	return strings.Join(terms, " ")
}

// segment NFC-normalizes and escapes one path segment. Zone and owner names
// may carry non-ASCII labels typed in either composed or decomposed form.
func segment(s string) string {
	return url.PathEscape(norm.NFC.String(s))
}

// joinPath builds an API path from literal prefix parts and escaped
// segments, e.g. joinPath("/v1/zones", zone, "rrsets").
func joinPath(prefix string, segments ...string) string {
	var b strings.Builder

	b.WriteString(prefix)

	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(segment(s))
	}

	return b.String()
}
