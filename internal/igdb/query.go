package igdb

import (
	"fmt"
	"strings"
)

// SortOrder is the direction of an Apicalypse sort clause
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// discoverFields are the record fields the normalizer consumes
var discoverFields = []string{
	"id",
	"name",
	"total_rating",
	"rating",
	"release_dates.date",
	"cover.url",
	"platforms.name",
	"genres.name",
	"first_release_date",
}

// Query builds an IGDB Apicalypse request body
type Query struct {
	fields []string
	where  []string
	sort   string
	order  SortOrder
	limit  int
	offset int
}

// NewQuery starts a query selecting fields
func NewQuery(fields ...string) *Query {
	return &Query{fields: fields}
}

// Where adds a filter condition; conditions are joined with &
func (q *Query) Where(condition string) *Query {
	q.where = append(q.where, condition)
	return q
}

// NotNull filters out records where any of fields is null
func (q *Query) NotNull(fields ...string) *Query {
	for _, f := range fields {
		q.Where(f + " != null")
	}
	return q
}

// Sort sets the sort field and order
func (q *Query) Sort(field string, order SortOrder) *Query {
	q.sort = field
	q.order = order
	return q
}

// Limit sets the page size
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset sets the number of records to skip
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// String renders the query as statements terminated by semicolons
func (q *Query) String() string {
	var b strings.Builder
	if len(q.fields) > 0 {
		fmt.Fprintf(&b, "fields %s;\n", strings.Join(q.fields, ", "))
	}
	if len(q.where) > 0 {
		fmt.Fprintf(&b, "where %s;\n", strings.Join(q.where, " & "))
	}
	if q.sort != "" {
		fmt.Fprintf(&b, "sort %s %s;\n", q.sort, q.order)
	}
	if q.limit > 0 {
		fmt.Fprintf(&b, "limit %d;\n", q.limit)
		fmt.Fprintf(&b, "offset %d;\n", q.offset)
	}
	return b.String()
}

// DiscoverQuery selects rated, covered games ordered by aggregate rating,
// starting at page*pageSize.
func DiscoverQuery(page, pageSize int) *Query {
	return NewQuery(discoverFields...).
		NotNull("rating", "cover", "total_rating").
		Sort("total_rating", Desc).
		Limit(pageSize).
		Offset(page * pageSize)
}
