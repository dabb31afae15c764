package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"rideapp/backend"
)

type rowsAPI struct {
	c *Client
}

func (r rowsAPI) From(table string) backend.IQuery {
	return &query{c: r.c, table: table, sel: "*"}
}

// query accumulates PostgREST-style parameters and executes on a
// terminal call. Filters are equality/range expressions on columns.
type query struct {
	c       *Client
	table   string
	sel     string
	filters url.Values
	order   string
	limit   int
}

func (q *query) filter(column, op string, value any) *query {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, fmt.Sprintf("%s.%v", op, value))
	return q
}

func (q *query) Select(columns string) backend.IQuery { q.sel = columns; return q }

func (q *query) Eq(column string, value any) backend.IQuery  { return q.filter(column, "eq", value) }
func (q *query) Gte(column string, value any) backend.IQuery { return q.filter(column, "gte", value) }
func (q *query) Lte(column string, value any) backend.IQuery { return q.filter(column, "lte", value) }

func (q *query) Order(column string, ascending bool) backend.IQuery {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = column + "." + dir
	return q
}

func (q *query) Limit(n int) backend.IQuery { q.limit = n; return q }

func (q *query) path(withSelect bool) string {
	vals := url.Values{}
	if withSelect {
		vals.Set("select", q.sel)
	}
	for col, exprs := range q.filters {
		for _, expr := range exprs {
			vals.Add(col, expr)
		}
	}
	if q.order != "" {
		vals.Set("order", q.order)
	}
	if q.limit > 0 {
		vals.Set("limit", strconv.Itoa(q.limit))
	}
	p := "/rest/v1/" + q.table
	if enc := vals.Encode(); enc != "" {
		p += "?" + enc
	}
	return p
}

func (q *query) Get(ctx context.Context, dest any) error {
	resp, err := q.c.do(ctx, http.MethodGet, q.path(true), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("rest: decode %s rows: %w", q.table, err)
	}
	return nil
}

func (q *query) Single(ctx context.Context, dest any) error {
	resp, err := q.c.do(ctx, http.MethodGet, q.path(true), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeFirst(resp, q.table, dest)
}

func (q *query) Insert(ctx context.Context, row any, dest any) error {
	hdr := http.Header{}
	if dest != nil {
		hdr.Set("Prefer", "return=representation")
	}
	resp, err := q.c.do(ctx, http.MethodPost, q.path(false), row, hdr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if dest == nil {
		return nil
	}
	return decodeFirst(resp, q.table, dest)
}

func (q *query) Update(ctx context.Context, values any) error {
	resp, err := q.c.do(ctx, http.MethodPatch, q.path(false), values, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (q *query) Delete(ctx context.Context) error {
	resp, err := q.c.do(ctx, http.MethodDelete, q.path(false), nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// decodeFirst unwraps the single-element array the row API returns.
func decodeFirst(resp *http.Response, table string, dest any) error {
	var rows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return fmt.Errorf("rest: decode %s rows: %w", table, err)
	}
	if len(rows) == 0 {
		return backend.ErrNoRows
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return fmt.Errorf("rest: decode %s row: %w", table, err)
	}
	return nil
}
