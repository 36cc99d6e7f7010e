package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"int", 5, 5},
		{"int64", int64(7), 7},
		{"float", 3.9, 3},
		{"string", " 42 ", 42},
		{"bytes", []byte("12"), 12},
		{"bool", true, 1},
		{"nil", nil, 0},
		{"garbage", "abc", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToInt(tt.in))
		})
	}
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool(true))
	assert.True(t, ToBool("TRUE"))
	assert.True(t, ToBool([]byte("1")))
	assert.True(t, ToBool(int64(1)))
	assert.False(t, ToBool("no"))
	assert.False(t, ToBool(nil))
}

func TestToTime(t *testing.T) {
	want := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	got, ok := ToTime("2024-03-01T10:30:00Z")
	assert.True(t, ok)
	assert.True(t, want.Equal(got))

	got, ok = ToTime("2024-03-01T11:30:00.000+0100")
	assert.True(t, ok)
	assert.True(t, want.Equal(got), "salesforce style offsets are accepted")

	got, ok = ToTime([]byte("2024-03-01 10:30:00"))
	assert.True(t, ok)
	assert.True(t, want.Equal(got))

	_, ok = ToTime("")
	assert.False(t, ok)
	_, ok = ToTime(time.Time{})
	assert.False(t, ok)
	_, ok = ToTime(42)
	assert.False(t, ok)
}

func TestToStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ToStringSlice("a; b;c", ";"))
	assert.Equal(t, []string{}, ToStringSlice("", ";"))
	assert.Equal(t, []string{"x", "1"}, ToStringSlice([]any{"x", 1}, ";"))
	assert.Nil(t, ToStringSlice(nil, ";"))
}
