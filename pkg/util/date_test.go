package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))

	got, ok = ParseTime("2024-10-10T10:10:10.250Z")
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, time.Duration(got.Nanosecond()))
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)

	got, ok := ParseTime(strconv.FormatInt(ts.Unix(), 10))
	require.True(t, ok)
	assert.Equal(t, ts.Unix(), got.Unix())

	got, ok = ParseTime(strconv.FormatInt(ts.UnixMilli(), 10))
	require.True(t, ok)
	assert.True(t, got.Equal(ts))
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	assert.True(t, ParseTimeDefault("", def).Equal(def))
	assert.True(t, ParseTimeDefault("yesterday", def).Equal(def))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 8080, ParseIntDefault("", 8080))
	assert.Equal(t, 9000, ParseIntDefault(" 9000 ", 8080))
	assert.Equal(t, 8080, ParseIntDefault("port", 8080))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, SplitCSV("kafka-1:9092, kafka-2:9092,"))
	assert.Nil(t, SplitCSV(" , "))
}
