// Package pagination turns page/limit query parameters into offset windows
// and wraps list results with page metadata.
package pagination

import (
	"github.com/gofiber/fiber/v2"
)

const (
	// DefaultLimit is used when neither the request nor the caller sets a limit
	DefaultLimit = 20

	// MaxLimit caps a single page
	MaxLimit = 100

	// maxPage keeps offsets well inside int range on 32-bit builds
	maxPage = 100_000
)

// Params is a normalised page request
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// Meta describes where a page sits in the full result
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Page is one page of list results
type Page[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}

// GetParams reads ?page= and ?limit=. Missing or malformed values fall back
// to page 1 and defaultLimit (DefaultLimit when defaultLimit <= 0).
func GetParams(c *fiber.Ctx, defaultLimit int) Params {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return New(c.QueryInt("page", 1), c.QueryInt("limit", defaultLimit))
}

// New clamps page and limit into range and derives the offset
func New(page, limit int) Params {
	page = min(max(page, 1), maxPage)
	if limit < 1 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// GetMeta calculates page metadata for total matching rows
func GetMeta(p Params, total int64) Meta {
	pages := (total + int64(p.Limit) - 1) / int64(p.Limit)
	return Meta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    int64(p.Page) < pages,
		HasPrev:    p.Page > 1,
	}
}

// NewResponse wraps one page of items. A nil slice is encoded as [].
func NewResponse[T any](items []T, p Params, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Data: items, Meta: GetMeta(p, total)}
}
