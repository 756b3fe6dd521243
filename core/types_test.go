package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	jan1 := Date{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name    string
		in      string
		want    Date
		wantErr bool
	}{
		{name: "Date", in: "2024-01-01", want: jan1},
		{name: "Surrounding spaces", in: " 2024-01-01 ", want: jan1},
		{name: "RFC3339 timestamp", in: "2024-01-01T10:00:00Z", want: jan1},
		{name: "RFC3339 with offset", in: "2024-01-01T23:30:00+02:00", want: jan1},
		{name: "Trailing garbage", in: "2024-01-01garbage", wantErr: true},
		{name: "Trailing space then text", in: "2024-01-01 x", wantErr: true},
		{name: "Bad month", in: "2024-13-01", wantErr: true},
		{name: "Short", in: "2024-1-1", wantErr: true},
		{name: "Empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestDate_UnmarshalJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalJSON([]byte(`"2024-02-29"`)))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, d.UnmarshalJSON([]byte(`null`)))
	assert.True(t, d.IsZero())

	assert.Error(t, d.UnmarshalJSON([]byte(`"2024-02-29garbage"`)))
}

func TestDate_Scan(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{name: "Nil", value: nil, want: ""},
		{name: "Time", value: time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), want: "2024-03-05"},
		{name: "Date text", value: "2024-03-05", want: "2024-03-05"},
		{name: "Bytes", value: []byte("2024-03-05"), want: "2024-03-05"},
		{name: "Sqlite timestamp", value: "2024-03-05 00:00:00+00:00", want: "2024-03-05"},
		{name: "Sqlite timestamp without zone", value: "2024-03-05 00:00:00", want: "2024-03-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.value))
			assert.Equal(t, tt.want, d.String())
		})
	}

	t.Run("Garbage", func(t *testing.T) {
		var d Date
		assert.Error(t, d.Scan("2024-03-05garbage"))
		assert.Error(t, d.Scan(42))
	})
}
