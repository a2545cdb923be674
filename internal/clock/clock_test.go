package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf_DropsTimeOfDay(t *testing.T) {
	late := time.Date(2024, time.March, 10, 23, 59, 59, 0, time.UTC)
	early := time.Date(2024, time.March, 10, 0, 0, 1, 0, time.UTC)

	assert.True(t, DateOf(late).Equal(DateOf(early)))
	assert.Equal(t, "2024-03-10", DateOf(late).String())
}

func TestDate_DaysUntil(t *testing.T) {
	start := NewDate(2024, time.January, 1)

	assert.Equal(t, 181, start.DaysUntil(NewDate(2024, time.June, 30)))
	assert.Equal(t, -1, start.DaysUntil(start.AddDays(-1)))
	assert.Equal(t, 0, start.DaysUntil(start))
}

func TestDate_DaysUntilLongRange(t *testing.T) {
	start := NewDate(1700, time.January, 1)
	end := NewDate(2024, time.December, 31)

	assert.Equal(t, 118703, start.DaysUntil(end))
	assert.Equal(t, -118703, end.DaysUntil(start))
}

func TestDate_ScanAndText(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, time.July, 1, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-07-01", d.String())

	require.NoError(t, d.Scan("2023-12-31"))
	assert.Equal(t, NewDate(2023, time.December, 31), d)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	var txt Date
	require.NoError(t, txt.UnmarshalText([]byte("2025-02-28")))
	out, err := txt.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", string(out))
}

func TestFixed_Today(t *testing.T) {
	c := Fixed{At: time.Date(2024, time.May, 5, 13, 30, 0, 0, time.UTC)}
	assert.Equal(t, NewDate(2024, time.May, 5), c.Today())
	assert.Equal(t, 13, c.Now().Hour())
}
