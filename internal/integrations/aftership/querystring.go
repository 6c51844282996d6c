package aftership

import (
	"net/url"
	"strings"
)

// QueryString builds "&name=value&name2=value2"; Leading() turns the first
// "&" into "?".
type QueryString struct {
	b strings.Builder
}

func (q *QueryString) Add(name, value string) *QueryString {
	q.b.WriteByte('&')
	q.b.WriteString(escape(name))
	q.b.WriteByte('=')
	q.b.WriteString(escape(value))
	return q
}

// AddList joins values with commas and encodes the result as one parameter.
func (q *QueryString) AddList(name string, values []string) *QueryString {
	return q.Add(name, strings.Join(values, ","))
}

func (q *QueryString) Empty() bool {
	return q.b.Len() == 0
}

func (q *QueryString) String() string {
	return q.b.String()
}

func (q *QueryString) Leading() string {
	return strings.Replace(q.b.String(), "&", "?", 1)
}

// escape encodes everything except RFC 3986 unreserved characters.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
