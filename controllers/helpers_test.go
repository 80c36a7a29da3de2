package controllers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name         string
		page         string
		size         string
		expectedPage int
		expectedSize int
	}{
		{"defaults", "", "", 1, 10},
		{"explicit", "3", "25", 3, 25},
		{"zero_page_falls_back", "0", "25", 1, 25},
		{"negative_values_fall_back", "-1", "-5", 1, 10},
		{"oversized_page_size_capped", "2", "500", 2, 10},
		{"garbage_falls_back", "abc", "xyz", 1, 10},
		{"whitespace_trimmed", " 4 ", " 20 ", 4, 20},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, size := parsePagination(tc.page, tc.size)
			require.Equal(t, tc.expectedPage, page)
			require.Equal(t, tc.expectedSize, size)
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected uint
		ok       bool
	}{
		{"valid", "42", 42, true},
		{"trims_whitespace", " 7 ", 7, true},
		{"zero_rejected", "0", 0, false},
		{"negative_rejected", "-3", 0, false},
		{"non_numeric_rejected", "abc", 0, false},
		{"empty_rejected", "", 0, false},
		{"overflow_rejected", "99999999999999999999", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := parseID(tc.raw)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, id)
		})
	}
}
