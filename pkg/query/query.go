// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package query parses list-valued query parameters and settings.
package query

import (
	"strings"

	"github.com/taibuivan/storyweaver/pkg/convert"
)

// StringSlice splits a comma-separated value into trimmed, non-empty items.
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}
	var res []string
	for _, v := range strings.Split(val, ",") {
		if clean := strings.TrimSpace(v); clean != "" {
			res = append(res, clean)
		}
	}
	return res
}

// PositiveInts parses a comma-separated list of positive integers such as
// "1,2,10". Malformed or non-positive entries are dropped.
func PositiveInts(val string) []int {
	var res []int
	for _, item := range StringSlice(val) {
		if n := convert.ToIntD(item, 0); n > 0 {
			res = append(res, n)
		}
	}
	return res
}
