// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbotia/lab5/pkg/pagination"
)

/*
TestFromRequest covers defaults, aliases and clamping.
*/
func TestFromRequest(t *testing.T) {
	tests := []struct {
		query string
		want  pagination.Params
	}{
		{"", pagination.Params{Page: 0, Size: pagination.DefaultSize}},
		{"?page=2&size=5", pagination.Params{Page: 2, Size: 5}},
		{"?page=1&limit=7", pagination.Params{Page: 1, Size: 7}},
		{"?page=-3&size=500", pagination.Params{Page: 0, Size: pagination.DefaultSize}},
		{"?page=abc&size=0", pagination.Params{Page: 0, Size: pagination.DefaultSize}},
		{"?page=922337203685477580&size=20", pagination.Params{Page: 0, Size: 20}},
		{"?page=99999999999999999999", pagination.Params{Page: 0, Size: pagination.DefaultSize}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := pagination.FromRequest(httptest.NewRequest("GET", "/users"+tt.query, nil))
			assert.Equal(t, tt.want, got)
		})
	}
}

/*
TestMeta checks offsets and page counts.
*/
func TestMeta(t *testing.T) {
	p := pagination.Params{Page: 2, Size: 10}
	assert.Equal(t, 20, p.Offset())

	meta := pagination.NewMeta(p, 21)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 21, meta.Total)

	assert.Zero(t, pagination.NewMeta(pagination.Params{}, 5).TotalPages)
}

/*
TestOffset_NeverNegative pushes the largest accepted page and size.
*/
func TestOffset_NeverNegative(t *testing.T) {
	largest := pagination.Params{Page: pagination.MaxPage, Size: pagination.MaxSize}
	assert.Positive(t, largest.Offset())

	for _, query := range []string{"?page=922337203685477580&size=20", "?page=21474836&size=100"} {
		p := pagination.FromRequest(httptest.NewRequest("GET", "/users"+query, nil))
		assert.GreaterOrEqual(t, p.Offset(), 0, query)
	}
}
