package location

import (
	"errors"
	"math"
	"testing"
)

func TestParseGGA(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantLat float64
		wantLng float64
		wantErr error
	}{
		{
			name:    "plain sentence",
			line:    "$GPGGA,092750.000,1258.296,N,07735.676,E,1,8,1.03,61.7,M,55.2,M,,*76",
			wantLat: 12.9716,
			wantLng: 77.5946,
		},
		{
			name:    "byte-string framing before the tag",
			line:    "b'$GPGGA,092750.000,1258.296,N,07735.676,E,1,8,1.03,61.7,M,55.2,M,,*76\\r\\n'",
			wantLat: 12.9716,
			wantLng: 77.5946,
		},
		{
			name:    "multi-GNSS talker",
			line:    "$GNGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
			wantLat: 48.1173,
			wantLng: 11.5166666666667,
		},
		{
			name:    "southern and western hemisphere",
			line:    "$GPGGA,123519,3352.128,S,15112.558,W,1,08,0.9,5.4,M,46.9,M,,*47",
			wantLat: -33.8688,
			wantLng: -151.2093,
		},
		{
			name:    "other sentence type",
			line:    "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A",
			wantErr: ErrNoSentence,
		},
		{
			name:    "no fix yet",
			line:    "$GPGGA,123519,,,,,0,00,,,M,,M,,*66",
			wantErr: ErrInvalidSentence,
		},
		{
			name:    "fix quality zero with stale coordinates",
			line:    "$GPGGA,123519,4807.038,N,01131.000,E,0,00,,,M,,M,,*66",
			wantErr: ErrInvalidSentence,
		},
		{
			name:    "truncated",
			line:    "$GPGGA,123519,4807.0",
			wantErr: ErrInvalidSentence,
		},
		{
			name:    "empty line",
			line:    "",
			wantErr: ErrNoSentence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseGGA(tt.line)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseGGA() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGGA() unexpected error: %v", err)
			}
			if math.Abs(p.Lat-tt.wantLat) > 1e-6 || math.Abs(p.Lng-tt.wantLng) > 1e-6 {
				t.Errorf("ParseGGA() = %+v, want lat=%f lng=%f", p, tt.wantLat, tt.wantLng)
			}
		})
	}
}

func TestHasGGA(t *testing.T) {
	tests := map[string]bool{
		"$GPGGA,092750.000,1258.296,N,07735.676,E,1,8": true,
		"b'$GNGGA,092750.000,1258.296,N'":              true,
		"$GPRMC,123519,A,4807.038,N":                   false,
		"":                                             false,
	}
	for line, want := range tests {
		if got := HasGGA(line); got != want {
			t.Errorf("HasGGA(%q) = %v, want %v", line, got, want)
		}
	}
}
