package cli

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    civil.Date
		wantErr bool
	}{
		{input: "2024-01-31", want: civil.Date{Year: 2024, Month: 1, Day: 31}},
		{input: "yesterday", want: civil.Date{Year: 2024, Month: 5, Day: 9}},
		{input: "tomorrow", want: civil.Date{Year: 2024, Month: 5, Day: 11}},
		{input: "nonsense words", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDate(tt.input, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClock(t *testing.T) {
	got, err := parseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, civil.Time{Hour: 7, Minute: 45}, got)

	got, err = parseClock("23:59:30")
	require.NoError(t, err)
	assert.Equal(t, civil.Time{Hour: 23, Minute: 59, Second: 30}, got)

	_, err = parseClock("25:00")
	assert.Error(t, err)
}
