package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTCDateIgnoresLocalZone(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	// 01:30 по Москве — ещё предыдущий день по UTC
	assert.Equal(t, "2026-10-14", UTCDate(time.Date(2026, 10, 15, 1, 30, 0, 0, msk)))
	assert.Equal(t, "2026-10-15", UTCDate(time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)))
}

func TestPreviousUTCDate(t *testing.T) {
	assert.Equal(t, "2026-02-28", PreviousUTCDate(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseInt64CSV(t *testing.T) {
	ids, err := ParseInt64CSV(" -1001, 42 ,,7")
	require.NoError(t, err)
	assert.Equal(t, []int64{-1001, 42, 7}, ids)

	ids, err = ParseInt64CSV("   ")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = ParseInt64CSV("1,abc")
	assert.Error(t, err)
}
