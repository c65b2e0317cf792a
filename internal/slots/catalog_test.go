package slots

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := MustCatalog(DefaultConfig())

	all := c.All()
	require.Len(t, all, 17)
	assert.Equal(t, Slot("09:00 AM"), all[0])
	assert.Equal(t, Slot("12:00 PM"), all[6])
	assert.Equal(t, Slot("12:30 PM"), all[7])
	assert.Equal(t, Slot("05:00 PM"), all[16])

	prev := time.Duration(-1)
	seen := map[Slot]bool{}
	for _, s := range all {
		offset, err := ToOffset(s)
		require.NoError(t, err)
		assert.Greater(t, offset, prev, "slots must be strictly increasing")
		assert.False(t, seen[s], "duplicate slot %s", s)
		seen[s] = true
		prev = offset
	}
}

func TestCatalogIndex(t *testing.T) {
	c := MustCatalog(DefaultConfig())

	i, ok := c.Index("02:30 PM")
	require.True(t, ok)
	assert.Equal(t, 11, i)

	_, ok = c.Index("08:30 AM")
	assert.False(t, ok)
	assert.False(t, c.Contains("5:00 PM"))
}

func TestAllReturnsCopy(t *testing.T) {
	c := MustCatalog(DefaultConfig())
	all := c.All()
	all[0] = "tampered"
	assert.Equal(t, Slot("09:00 AM"), c.All()[0])
}

func TestNewCatalogRejectsInvalidConfig(t *testing.T) {
	tests := []Config{
		{OpenHour: 17, CloseHour: 9, StepMinutes: 30},
		{OpenHour: 9, CloseHour: 9, StepMinutes: 30},
		{OpenHour: 9, CloseHour: 17, StepMinutes: 0},
		{OpenHour: -1, CloseHour: 17, StepMinutes: 30},
		{OpenHour: 9, CloseHour: 24, StepMinutes: 30},
	}
	for _, cfg := range tests {
		_, err := NewCatalog(cfg)
		assert.Error(t, err, "config %+v", cfg)
	}
}

func TestToOffset(t *testing.T) {
	tests := []struct {
		slot Slot
		want time.Duration
	}{
		{"12:00 AM", 0},
		{"12:30 AM", 30 * time.Minute},
		{"09:00 AM", 9 * time.Hour},
		{"12:00 PM", 12 * time.Hour},
		{"02:30 PM", 14*time.Hour + 30*time.Minute},
		{"11:30 pm", 23*time.Hour + 30*time.Minute},
	}
	for _, tt := range tests {
		t.Run(string(tt.slot), func(t *testing.T) {
			got, err := ToOffset(tt.slot)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	ms, err := ToOffsetMillis("12:00 PM")
	require.NoError(t, err)
	assert.Equal(t, int64(12*60*60*1000), ms)
}

func TestToOffsetInvalid(t *testing.T) {
	for _, s := range []Slot{"", "14:30", "13:00 PM", "00:30 AM", "09:60 AM", "09:5 AM", "09:00 XM", "nine AM"} {
		_, err := ToOffset(s)
		assert.True(t, errors.Is(err, ErrInvalidSlot), "slot %q", s)
	}
}

func TestLabelRoundTrip(t *testing.T) {
	for _, s := range MustCatalog(Config{OpenHour: 0, CloseHour: 23, StepMinutes: 30}).All() {
		offset, err := ToOffset(s)
		require.NoError(t, err)
		assert.Equal(t, s, Label(offset))
	}
}

func TestCombineIsDeterministic(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	date := time.Date(2025, 6, 10, 18, 45, 0, 0, loc)
	first, err := Combine(date, "02:30 PM")
	require.NoError(t, err)
	second, err := Combine(date, "02:30 PM")
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.True(t, time.Date(2025, 6, 10, 14, 30, 0, 0, loc).Equal(first), "got %s", first)

	_, err = Combine(date, "bad")
	assert.ErrorIs(t, err, ErrInvalidSlot)
}
