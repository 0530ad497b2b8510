package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	lisbon, err := time.LoadLocation("Europe/Lisbon")
	require.NoError(t, err)
	anchor := time.Date(1990, 5, 10, 0, 0, 0, 0, lisbon)

	t.Run("誕生日は全年を出力する", func(t *testing.T) {
		occ := Expand(anchor, 2022, 2029, Birthday)
		require.Len(t, occ, 8)
		for i, o := range occ {
			assert.Equal(t, 2022+i, o.Year)
			assert.Equal(t, time.Date(2022+i, 5, 10, 0, 0, 0, 0, lisbon), o.Date)
		}
	})

	t.Run("起点年より前も出力する", func(t *testing.T) {
		recent := time.Date(2025, 3, 1, 0, 0, 0, 0, lisbon)
		occ := Expand(recent, 2022, 2029, Birthday)
		assert.Len(t, occ, 8)
	})

	t.Run("記念日は起点年以降のみ", func(t *testing.T) {
		deed := time.Date(2024, 7, 15, 0, 0, 0, 0, lisbon)
		occ := Expand(deed, 2022, 2029, SinceOrigin)
		require.Len(t, occ, 6)
		assert.Equal(t, 2024, occ[0].Year)
		assert.Equal(t, 2029, occ[5].Year)
	})

	t.Run("起点年が範囲外なら空", func(t *testing.T) {
		future := time.Date(2035, 1, 1, 0, 0, 0, 0, lisbon)
		assert.Empty(t, Expand(future, 2022, 2029, SinceOrigin))
	})

	t.Run("逆転した範囲は空", func(t *testing.T) {
		assert.Empty(t, Expand(anchor, 2029, 2022, Birthday))
	})

	t.Run("2月29日は平年で3月1日", func(t *testing.T) {
		leap := time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC)
		occ := Expand(leap, 2023, 2024, Birthday)
		require.Len(t, occ, 2)
		assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), occ[0].Date)
		assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), occ[1].Date)
	})
}

func TestWindow(t *testing.T) {
	start, end := Window(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2022, start)
	assert.Equal(t, 2029, end)
}

func TestYearlyRule(t *testing.T) {
	assert.Contains(t, YearlyRule(), "RRULE:")
	assert.Contains(t, YearlyRule(), "FREQ=YEARLY")
}
