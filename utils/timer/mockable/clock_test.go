// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mockable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockSetAndAdvance(t *testing.T) {
	require := require.New(t)

	var clk Clock
	start := time.Unix(1_700_000_000, 500)
	clk.Set(start)
	require.Equal(start, clk.Time())
	require.Equal(time.Unix(1_700_000_000, 0), clk.UnixTime())

	clk.Advance(time.Hour)
	require.Equal(start.Add(time.Hour), clk.Time())

	clk.Sync()
	require.WithinDuration(time.Now(), clk.Time(), time.Minute)
}
