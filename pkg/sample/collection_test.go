package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ingestAll(c *Collection, values ...float64) []Position {
	out := make([]Position, 0, len(values))
	for _, v := range values {
		out = append(out, c.Ingest(NewReading(v)))
	}
	return out
}

func TestIngestPositions(t *testing.T) {
	c := NewCollection(5)
	pos := ingestAll(c, 1, 2, 3, 4, 5, 6, 7)

	exp := []Position{
		{Index: 1, Position: 1}, {Index: 1, Position: 2}, {Index: 1, Position: 3}, {Index: 1, Position: 4},
		{Index: 1, Position: 5, Complete: true},
		{Index: 2, Position: 1}, {Index: 2, Position: 2},
	}
	assert.Equal(t, exp, pos)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.Complete())
	require.NotNil(t, c.Current())
	assert.Equal(t, 2, c.Current().Index)
}

func TestIngestSampleCount(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 6, 10, 11, 23, 50} {
		c := NewCollection(DefaultSize)
		values := make([]float64, n)
		for i := range values {
			values[i] = float64(i)
		}
		ingestAll(c, values...)

		assert.Equal(t, (n+DefaultSize-1)/DefaultSize, c.Len(), "samples for %d readings", n)
		assert.Equal(t, n, c.TotalReadings())

		next := 0.0
		samples := c.Samples()
		for i, s := range samples {
			assert.Equal(t, i+1, s.Index)
			if i < len(samples)-1 {
				assert.Len(t, s.Readings, DefaultSize)
			}
			for _, r := range s.Readings {
				assert.Equal(t, next, r.Value, "ingestion order")
				next++
			}
		}
	}
}

func TestNewCollectionDefaultSize(t *testing.T) {
	assert.Equal(t, DefaultSize, NewCollection(0).Size())
	assert.Equal(t, DefaultSize, NewCollection(-3).Size())
	assert.Equal(t, 3, NewCollection(3).Size())
}

func TestMalformedLastSampleOpensNew(t *testing.T) {
	c, err := FromRecords(5, []Record{{ID: "1", Data: []float64{1, 2, 3, 4, 5}}, {ID: "2"}})
	require.NoError(t, err)
	assert.Nil(t, c.Current())

	pos := c.Ingest(NewReading(9))
	assert.Equal(t, Position{Index: 3, Position: 1}, pos)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 6, c.TotalReadings())
}

func TestSummaries(t *testing.T) {
	c := NewCollection(5)
	ingestAll(c, 20, 22, 21, 19, 23, 30, 31, 29, 32, 28, 40, 44)

	tt := []struct {
		name         string
		onlyComplete bool
		exp          []Summary
	}{
		{name: "all", onlyComplete: false, exp: []Summary{{1, 21, 4}, {2, 30, 4}, {3, 42, 4}}},
		{name: "only complete", onlyComplete: true, exp: []Summary{{1, 21, 4}, {2, 30, 4}}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Summaries(tc.onlyComplete)
			require.Len(t, got, len(tc.exp))
			for i := range got {
				assert.Equal(t, tc.exp[i].Index, got[i].Index)
				assert.InDelta(t, tc.exp[i].Mean, got[i].Mean, 1e-9)
				assert.InDelta(t, tc.exp[i].Range, got[i].Range, 1e-9)
			}
		})
	}

	assert.Equal(t, []float64{21, 30}, Means(c.Summaries(true)))
	assert.Equal(t, []float64{4, 4}, Ranges(c.Summaries(true)))
}

func TestSummariesSkipEmptySamples(t *testing.T) {
	c, err := FromRecords(5, []Record{{ID: "1", Data: []float64{1, 2, 3, 4, 5}}, {ID: "2"}, {ID: "3", Data: []float64{}}})
	require.NoError(t, err)
	got := c.Summaries(false)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Index)
}

func TestLatestAndTail(t *testing.T) {
	c := NewCollection(2)
	_, _, ok := c.Latest()
	assert.False(t, ok)

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.Ingest(NewReading(1))
	c.Ingest(NewReading(2))
	c.Ingest(NewReading(3).At(ts))

	r, s, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, 3.0, r.Value)
	require.NotNil(t, r.Timestamp)
	assert.Equal(t, ts, *r.Timestamp)
	assert.Equal(t, 2, s.Index)

	assert.Len(t, c.Tail(0), 2)
	assert.Len(t, c.Tail(5), 2)
	tail := c.Tail(1)
	require.Len(t, tail, 1)
	assert.Equal(t, 2, tail[0].Index)
}

func TestSamplesAreCopies(t *testing.T) {
	c := NewCollection(5)
	c.Ingest(NewReading(1))
	s := c.Samples()
	s[0].Readings[0].Value = 100
	s[0].Readings = append(s[0].Readings, NewReading(2))

	assert.Equal(t, 1, c.TotalReadings())
	assert.Equal(t, []float64{1}, c.Samples()[0].Values())
}

func TestParseKind(t *testing.T) {
	tt := []struct {
		in    string
		exp   Kind
		Error bool
	}{
		{in: "temperature", exp: Temperature},
		{in: " Humidity ", exp: Humidity},
		{in: "pressure", Error: true},
		{in: "", Error: true},
	}
	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			k, err := ParseKind(tc.in)
			if tc.Error {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.exp, k)
		})
	}
}
