package forecaster

import (
	"testing"
	"time"

	"github.com/aouyang1/go-arimax/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	d := func(i int) time.Time { return testStart.AddDate(0, 0, i) }

	testData := map[string]struct {
		rows     []Observation
		sentinel int
		hist     []int
		future   []int
	}{
		"empty": {
			hist:   []int{},
			future: []int{},
		},
		"history only": {
			rows:     []Observation{{Date: d(0), Count: 1}, {Date: d(1), Count: 2}},
			sentinel: -1,
			hist:     []int{1, 2},
			future:   []int{},
		},
		"mixed": {
			rows: []Observation{
				{Date: d(0), Count: 1},
				{Date: d(1), Count: 2},
				{Date: d(2), Count: -1},
				{Date: d(3), Count: -1},
			},
			sentinel: -1,
			hist:     []int{1, 2},
			future:   []int{-1, -1},
		},
		"custom sentinel": {
			rows: []Observation{
				{Date: d(0), Count: -1},
				{Date: d(1), Count: 0},
			},
			sentinel: 0,
			hist:     []int{-1},
			future:   []int{0},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			hist, future := Partition(td.rows, td.sentinel)
			histCnt := make([]int, 0, len(hist))
			for _, r := range hist {
				histCnt = append(histCnt, r.Count)
			}
			futureCnt := make([]int, 0, len(future))
			for _, r := range future {
				futureCnt = append(futureCnt, r.Count)
			}
			assert.Equal(t, td.hist, histCnt)
			assert.Equal(t, td.future, futureCnt)
		})
	}
}

func TestGroupBySite(t *testing.T) {
	rows := []Observation{
		{SiteID: "b", Count: 1},
		{SiteID: "a", Count: 2},
		{SiteID: "b", Count: 3},
		{SiteID: "c", Count: 4},
		{SiteID: "a", Count: 5},
	}

	sites, groups := GroupBySite(rows)
	assert.Equal(t, []string{"b", "a", "c"}, sites)
	require.Len(t, groups, 3)
	assert.Equal(t, 1, groups["b"][0].Count)
	assert.Equal(t, 3, groups["b"][1].Count)
	assert.Equal(t, 2, groups["a"][0].Count)
	assert.Equal(t, 5, groups["a"][1].Count)
	assert.Len(t, groups["c"], 1)

	sites, groups = GroupBySite(nil)
	assert.Empty(t, sites)
	assert.Empty(t, groups)
}

func TestFutureRows(t *testing.T) {
	days, err := calendar.New().Horizon(time.Date(2011, 7, 2, 0, 0, 0, 0, time.UTC), 3, 24*time.Hour)
	require.NoError(t, err)

	rows := FutureRows("site-1", days, DefaultSentinel)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, days[i].Date, r.Date)
		assert.Equal(t, "site-1", r.SiteID)
		assert.Equal(t, DefaultSentinel, r.Count)
		assert.True(t, r.IsFuture(DefaultSentinel))
	}
	// 2011-07-04 is Independence Day
	assert.Equal(t, 1.0, rows[1].Covariates[calendar.Holiday])
	assert.Equal(t, 0.0, rows[1].Covariates[calendar.Workingday])
	assert.Equal(t, 2.0, rows[2].Covariates[calendar.Weekday])

	rows[0].Covariates[calendar.Holiday] = 5
	assert.Equal(t, 0.0, days[0].Covariates[calendar.Holiday])
}
