package location

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"farebox/internal/types"
)

var (
	ErrNoSentence      = errors.New("no GGA sentence in line")
	ErrInvalidSentence = errors.New("invalid GGA sentence")
)

// ggaTags are the fix-sentence prefixes accepted from a receiver. Multi-GNSS
// receivers report GN instead of GP.
var ggaTags = []string{"$GPGGA,", "$GNGGA,"}

// ParseGGA extracts a fix from a line containing a GGA sentence. The tag may
// be preceded by noise (partial previous sentence, byte-string framing).
// Fields counted after the tag: 1 latitude, 2 N/S, 3 longitude, 4 E/W,
// 5 fix quality.
func ParseGGA(line string) (types.Point, error) {
	body, ok := cutGGA(line)
	if !ok {
		return types.Point{}, ErrNoSentence
	}
	fields := strings.Split(body, ",")
	if len(fields) < 4 {
		return types.Point{}, fmt.Errorf("%w: %d fields", ErrInvalidSentence, len(fields))
	}
	if len(fields) > 5 && strings.TrimSpace(fields[5]) == "0" {
		return types.Point{}, fmt.Errorf("%w: fix quality 0", ErrInvalidSentence)
	}

	rawLat, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return types.Point{}, fmt.Errorf("%w: latitude %q", ErrInvalidSentence, fields[1])
	}
	rawLng, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return types.Point{}, fmt.Errorf("%w: longitude %q", ErrInvalidSentence, fields[3])
	}

	p := types.Point{Lat: NMEAToDegrees(rawLat), Lng: NMEAToDegrees(rawLng)}
	if len(fields) > 2 && strings.TrimSpace(fields[2]) == "S" {
		p.Lat = -p.Lat
	}
	if len(fields) > 4 && strings.TrimSpace(fields[4]) == "W" {
		p.Lng = -p.Lng
	}
	return p, nil
}

// HasGGA reports whether line carries a GGA sentence.
func HasGGA(line string) bool {
	_, ok := cutGGA(line)
	return ok
}

func cutGGA(line string) (string, bool) {
	for _, tag := range ggaTags {
		if i := strings.Index(line, tag); i >= 0 {
			return line[i+len(tag):], true
		}
	}
	return "", false
}
