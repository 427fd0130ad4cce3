// Package tree - Pagination links
package tree

import (
	"fmt"
	"net/url"
)

// Links carries the pagination URLs for a response. Entries are null when
// no pagination applies.
type Links struct {
	// First points at the first page
	First *string `json:"first"`

	// Previous points at the preceding page, null on the first page
	Previous *string `json:"previous"`

	// Next points at the following page, null on the last page
	Next *string `json:"next"`

	// Last points at the final page
	Last *string `json:"last"`
}

// BuildLinks renders pagination links for a request path and query. Offsets
// address the paginated level counted by meta.count; the original query is
// preserved with limit/offset rewritten.
func BuildLinks(path string, query url.Values, limit, offset, count int) Links {
	if limit <= 0 {
		return Links{}
	}

	pageURL := func(off int) *string {
		q := url.Values{}
		for k, vals := range query {
			switch k {
			case "limit", "offset", "filter[limit]", "filter[offset]":
				continue
			}
			q[k] = vals
		}
		q.Set("limit", fmt.Sprintf("%d", limit))
		q.Set("offset", fmt.Sprintf("%d", off))
		u := path + "?" + q.Encode()
		return &u
	}

	links := Links{First: pageURL(0)}

	lastOffset := 0
	if count > 0 {
		lastOffset = ((count - 1) / limit) * limit
	}
	links.Last = pageURL(lastOffset)

	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		links.Previous = pageURL(prev)
	}
	if offset+limit < count {
		links.Next = pageURL(offset + limit)
	}
	return links
}
