package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDownloadableAt(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "rfc3339 with zone",
			raw:  "2026-09-01T10:00:00+09:00",
			want: time.Date(2026, 9, 1, 10, 0, 0, 0, time.FixedZone("", 9*3600)),
		},
		{
			name: "zone-less with seconds",
			raw:  "2026-09-01T10:00:00",
			want: time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local),
		},
		{
			name: "datetime-local form value",
			raw:  "2026-09-01T10:00",
			want: time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local),
		},
		{name: "date only", raw: "2026-09-01", wantErr: true},
		{name: "garbage", raw: "next tuesday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDownloadableAt(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "parsed %s, want %s", got, tt.want)
		})
	}
}

func TestParsePositiveInt(t *testing.T) {
	n, err := parsePositiveInt("")
	assert.NoError(t, err)
	assert.Zero(t, n, "absent values defer to engine defaults")

	n, err = parsePositiveInt("15")
	assert.NoError(t, err)
	assert.Equal(t, 15, n)

	for _, raw := range []string{"0", "-3", "abc", "1.5"} {
		_, err := parsePositiveInt(raw)
		assert.Error(t, err, "raw=%s", raw)
	}
}
