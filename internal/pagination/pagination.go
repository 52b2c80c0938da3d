// Package pagination turns raw list query parameters into a bounded, ordered
// fetch and packages the resulting page together with its total count.
package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/and161185/orgdesk/internal/errs"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order is one sort key.
type Order struct {
	Field string
	Dir   Direction
}

// Request is the parsed list request.
type Request struct {
	Page    int
	Limit   int
	Search  string
	OrderBy []Order // priority order, as given by the client
}

// Offset returns the number of rows to skip. Requests accepted by Parse or
// Fetch never overflow it.
func (r Request) Offset() int { return r.Page * r.Limit }

// checkWindow rejects pages whose offset does not fit in an int.
func checkWindow(page, limit int) error {
	if page < 0 {
		return errs.New(errs.ErrBadRequest, "page must be a non-negative integer")
	}
	if limit > 0 && page > math.MaxInt/limit {
		return errs.New(errs.ErrBadRequest, "page is out of range")
	}
	return nil
}

// Result is one page of T.
type Result[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// Query is handed to a Source: filter, search, resolved ordering and window.
type Query[F any] struct {
	Filter  F
	Search  string
	OrderBy []Order
	Offset  int
	Limit   int
}

// Source counts and lists T under a filter of type F.
type Source[T, F any] interface {
	// Count returns the number of rows matching filter and search; window is ignored.
	Count(ctx context.Context, q Query[F]) (int64, error)
	// List returns at most q.Limit rows after skipping q.Offset, ordered by q.OrderBy.
	List(ctx context.Context, q Query[F]) ([]T, error)
}

// Snapshotter is implemented by sources able to run Count and List against
// one consistent view. Fetch uses it when available.
type Snapshotter[T, F any] interface {
	Snapshot(ctx context.Context, fn func(ctx context.Context, src Source[T, F]) error) error
}

// Sortable declares which fields a resource may be sorted by and the
// tie-breaking keys appended to every ordering.
type Sortable struct {
	Fields   []string
	Tiebreak []Order
}

// Resolve validates requested keys and appends missing tie-breakers.
func (s Sortable) Resolve(in []Order) ([]Order, error) {
	out := make([]Order, 0, len(in)+len(s.Tiebreak))
	seen := make(map[string]bool, len(in)+len(s.Tiebreak))
	for _, o := range in {
		if !s.allowed(o.Field) {
			return nil, errs.New(errs.ErrBadRequest, fmt.Sprintf("cannot order by %q", o.Field))
		}
		out = append(out, o)
		seen[o.Field] = true
	}
	for _, o := range s.Tiebreak {
		if !seen[o.Field] {
			out = append(out, o)
			seen[o.Field] = true
		}
	}
	return out, nil
}

func (s Sortable) allowed(field string) bool {
	for _, f := range s.Fields {
		if f == field {
			return true
		}
	}
	for _, o := range s.Tiebreak {
		if o.Field == field {
			return true
		}
	}
	return false
}

// Parse reads page, limit, search and orderBy from query values.
// Malformed values fail with errs.ErrBadRequest; nothing falls back silently.
func Parse(q url.Values) (Request, error) {
	r := Request{Page: 0, Limit: DefaultLimit, Search: strings.TrimSpace(q.Get("search"))}

	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Request{}, errs.New(errs.ErrBadRequest, "page must be a non-negative integer")
		}
		r.Page = n
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Request{}, errs.New(errs.ErrBadRequest, "limit must be a positive integer")
		}
		r.Limit = min(n, MaxLimit)
	}
	if err := checkWindow(r.Page, r.Limit); err != nil {
		return Request{}, err
	}
	if v := strings.TrimSpace(q.Get("orderBy")); v != "" {
		order, err := ParseOrderBy(v)
		if err != nil {
			return Request{}, err
		}
		r.OrderBy = order
	}
	return r, nil
}

// ParseOrderBy decodes a JSON object of field to "asc"|"desc", keeping key order.
func ParseOrderBy(raw string) ([]Order, error) {
	bad := func(msg string) error {
		return errs.New(errs.ErrBadRequest, "invalid orderBy: "+msg)
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, bad("expected an object")
	}

	var out []Order
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, bad("malformed object")
		}
		field, _ := tok.(string)
		if field == "" {
			return nil, bad("empty field name")
		}
		if seen[field] {
			return nil, bad(fmt.Sprintf("duplicate field %q", field))
		}
		seen[field] = true

		tok, err = dec.Token()
		if err != nil {
			return nil, bad("malformed object")
		}
		dir, ok := tok.(string)
		if !ok {
			return nil, bad(fmt.Sprintf("direction of %q must be a string", field))
		}
		switch d := Direction(strings.ToLower(dir)); d {
		case Asc, Desc:
			out = append(out, Order{Field: field, Dir: d})
		default:
			return nil, bad(fmt.Sprintf("direction of %q must be asc or desc", field))
		}
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, bad("malformed object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, bad("trailing data")
	}
	return out, nil
}

// Fetch runs count and list for req under filter and packages the page.
// Without a Snapshotter the two reads are independent and total may drift
// from items under concurrent writes.
func Fetch[T, F any](ctx context.Context, src Source[T, F], req Request, filter F, sort Sortable) (Result[T], error) {
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if err := checkWindow(req.Page, req.Limit); err != nil {
		return Result[T]{}, err
	}
	order, err := sort.Resolve(req.OrderBy)
	if err != nil {
		return Result[T]{}, err
	}

	q := Query[F]{
		Filter:  filter,
		Search:  req.Search,
		OrderBy: order,
		Offset:  req.Offset(),
		Limit:   req.Limit,
	}
	res := Result[T]{Page: req.Page, Limit: req.Limit}

	run := func(ctx context.Context, s Source[T, F]) error {
		total, err := s.Count(ctx, q)
		if err != nil {
			return err
		}
		items, err := s.List(ctx, q)
		if err != nil {
			return err
		}
		res.Total, res.Items = total, items
		return nil
	}

	if snap, ok := src.(Snapshotter[T, F]); ok {
		err = snap.Snapshot(ctx, run)
	} else {
		err = run(ctx, src)
	}
	if err != nil {
		return Result[T]{}, err
	}
	if res.Items == nil {
		res.Items = []T{}
	}
	return res, nil
}

// Window slices an already filtered and ordered collection. It exists for
// in-memory Source implementations (test fakes); SQL sources push Offset and
// Limit into the query instead.
func Window[T any](all []T, offset, limit int) []T {
	if offset < 0 || offset >= len(all) || limit <= 0 {
		return nil
	}
	end := len(all)
	if limit < end-offset {
		end = offset + limit
	}
	return all[offset:end]
}

// Map converts the items of a page, keeping its metadata.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	out := Result[U]{Items: make([]U, 0, len(r.Items)), Page: r.Page, Limit: r.Limit, Total: r.Total}
	for _, it := range r.Items {
		out.Items = append(out.Items, fn(it))
	}
	return out
}
