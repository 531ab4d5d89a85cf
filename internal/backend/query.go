package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrUnfilteredDelete is returned when Delete is called without any filter.
var ErrUnfilteredDelete = errors.New("backend: refusing to delete without a filter")

// Query builds a request against the REST table API. A Query is not safe for
// concurrent use; build a new one per call.
type Query struct {
	c        *Client
	table    string
	params   url.Values
	filtered bool
	single   bool
}

// Select restricts the returned columns.
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq filters rows where column equals value.
func (q *Query) Eq(column string, value any) *Query {
	q.params.Add(column, fmt.Sprintf("eq.%v", value))
	q.filtered = true
	return q
}

// ILike filters rows where column matches pattern case-insensitively.
// A pattern without wildcards is a case-insensitive equality; pass user input
// through EscapeLike first.
func (q *Query) ILike(column, pattern string) *Query {
	q.params.Add(column, "ilike."+pattern)
	q.filtered = true
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `%`, `\%`, `_`, `\_`)

// EscapeLike quotes the wildcard characters of an ilike pattern so s only
// matches itself.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Or filters rows matching any of the comma-separated conditions in expr,
// e.g. "sender_id.eq.a,receiver_id.eq.a".
func (q *Query) Or(expr string) *Query {
	q.params.Set("or", "("+expr+")")
	q.filtered = true
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Set("order", column+"."+dir)
	return q
}

// Single expects exactly one row and decodes it as an object instead of an array.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

func (q *Query) header() http.Header {
	h := http.Header{}
	if q.single {
		h.Set("Accept", "application/vnd.pgrst.object+json")
	}
	return h
}

func (q *Query) path() string {
	return "/rest/v1/" + url.PathEscape(q.table)
}

// Execute runs a select and decodes the rows into out.
func (q *Query) Execute(ctx context.Context, out any) error {
	return q.c.do(ctx, request{
		service:   "rest",
		operation: "select_" + q.table,
		method:    http.MethodGet,
		path:      q.path(),
		query:     q.params,
		header:    q.header(),
	}, out)
}

// Insert writes row (a struct or a slice) and decodes the stored representation into out.
func (q *Query) Insert(ctx context.Context, row any, out any) error {
	body, err := jsonBody(row)
	if err != nil {
		return err
	}
	h := q.header()
	h.Set("Prefer", "return=representation")
	return q.c.do(ctx, request{
		service:   "rest",
		operation: "insert_" + q.table,
		method:    http.MethodPost,
		path:      q.path(),
		query:     q.params,
		header:    h,
		body:      body,
	}, out)
}

// Update patches the filtered rows and decodes the result into out.
func (q *Query) Update(ctx context.Context, patch any, out any) error {
	if !q.filtered {
		return errors.New("backend: refusing to update without a filter")
	}
	body, err := jsonBody(patch)
	if err != nil {
		return err
	}
	h := q.header()
	h.Set("Prefer", "return=representation")
	return q.c.do(ctx, request{
		service:   "rest",
		operation: "update_" + q.table,
		method:    http.MethodPatch,
		path:      q.path(),
		query:     q.params,
		header:    h,
		body:      body,
	}, out)
}

// Delete removes the filtered rows.
func (q *Query) Delete(ctx context.Context) error {
	if !q.filtered {
		return ErrUnfilteredDelete
	}
	return q.c.do(ctx, request{
		service:   "rest",
		operation: "delete_" + q.table,
		method:    http.MethodDelete,
		path:      q.path(),
		query:     q.params,
	}, nil)
}
