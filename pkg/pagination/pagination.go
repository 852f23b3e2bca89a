// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination parses list paging from query strings and describes the
// resulting page.
//
// Pages are zero-based: ?page=0&size=20 is the first page. "limit" is accepted
// as an alias of "size".
package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	// DefaultSize is the number of items per page if not specified.
	DefaultSize = 20
	// MaxSize is the upper bound for items per page.
	MaxSize = 100
	// MaxPage keeps Page*Size within int for every accepted size.
	MaxPage = math.MaxInt32 / MaxSize
)

// Params holds the parsed page and size of a request.
type Params struct {
	Page int
	Size int
}

// Offset returns the number of items before the page.
func (p Params) Offset() int {
	return p.Page * p.Size
}

// Meta describes one page of a listing.
type Meta struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta builds the metadata of page p given the total item count.
func NewMeta(p Params, total int) Meta {
	totalPages := 0
	if p.Size > 0 {
		totalPages = (total + p.Size - 1) / p.Size
	}

	return Meta{
		Page:       p.Page,
		Size:       p.Size,
		Total:      total,
		TotalPages: totalPages,
	}
}

// FromRequest reads "page" and "size" (or "limit"). Missing, malformed or
// out-of-range values fall back to the first page of [DefaultSize] items;
// pages past [MaxPage] count as out of range.
func FromRequest(r *http.Request) Params {
	query := r.URL.Query()

	page := parseInt(query.Get("page"), 0)
	if page < 0 || page > MaxPage {
		page = 0
	}

	rawSize := query.Get("size")
	if rawSize == "" {
		rawSize = query.Get("limit")
	}
	size := parseInt(rawSize, DefaultSize)
	if size < 1 || size > MaxSize {
		size = DefaultSize
	}

	return Params{Page: page, Size: size}
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
