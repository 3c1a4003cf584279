// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/storyweaver/pkg/pagination"
)

/*
TestFromRequest_Clamping verifies bad query values fall back to defaults.
*/
func TestFromRequest_Clamping(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want pagination.Params
	}{
		{"defaults", "/novels", pagination.Params{Page: 1, Limit: 20}},
		{"explicit", "/novels?page=3&limit=5", pagination.Params{Page: 3, Limit: 5}},
		{"negative_page", "/novels?page=-2", pagination.Params{Page: 1, Limit: 20}},
		{"excessive_limit", "/novels?limit=1000", pagination.Params{Page: 1, Limit: 20}},
		{"garbage", "/novels?page=x&limit=y", pagination.Params{Page: 1, Limit: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pagination.FromRequest(httptest.NewRequest("GET", tt.url, nil))
			assert.Equal(t, tt.want, got)
		})
	}
}

/*
TestWindow cuts pages out of an in-memory list.
*/
func TestWindow(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, meta := pagination.Window(items, pagination.Params{Page: 2, Limit: 2})
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, pagination.Meta{Page: 2, Limit: 2, Total: 5, TotalPages: 3}, meta)

	page, _ = pagination.Window(items, pagination.Params{Page: 3, Limit: 2})
	assert.Equal(t, []int{5}, page)

	page, _ = pagination.Window(items, pagination.Params{Page: 9, Limit: 2})
	assert.NotNil(t, page)
	assert.Empty(t, page)
}
