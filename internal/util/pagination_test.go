package util_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parikart/storefront/internal/util"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		page, size int
		wantFrom   int
		wantLimit  int
	}{
		{1, 10, 0, 10},
		{3, 10, 20, 10},
		{0, 10, 0, 10},
		{-5, 20, 0, 20},
		{2, 0, 10, 10},
		{2, 101, 10, 10},
		{1, 100, 0, 100},
	}
	for _, c := range cases {
		from, limit := util.Calculate(c.page, c.size)
		require.Equal(t, c.wantFrom, from, "page=%d size=%d", c.page, c.size)
		require.Equal(t, c.wantLimit, limit, "page=%d size=%d", c.page, c.size)
	}
}
