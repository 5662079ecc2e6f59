// Package timeago turns post timestamps into short relative labels
// ("now", "5 minutes ago", "yesterday", "3 Mar").
package timeago

import (
	"math"
	"strconv"
	"time"
)

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
)

// Format returns the label for t as seen at now.
//
// Buckets on the elapsed seconds, first match wins:
//
//	< 1m  "now"
//	< 1h  "N minute(s) ago"
//	< 1d  "N hour(s) ago"
//	< 2d  "yesterday"
//	else  "2 Jan" in the same year as now, "2 Jan, 2006" otherwise
//
// Timestamps in the future are treated as "now".
func Format(t, now time.Time) string {
	diff := now.Unix() - t.Unix()

	switch {
	case diff < minute:
		return "now"
	case diff < hour:
		return plural(roundDiv(diff, minute), "minute")
	case diff < day:
		return plural(roundDiv(diff, hour), "hour")
	case diff < 2*day:
		return "yesterday"
	}

	local := t.In(now.Location())
	if local.Year() == now.Year() {
		return local.Format("2 Jan")
	}
	return local.Format("2 Jan, 2006")
}

// roundDiv divides and rounds half away from zero.
func roundDiv(n, d int64) int64 {
	return int64(math.Round(float64(n) / float64(d)))
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return strconv.FormatInt(n, 10) + " " + unit + "s ago"
}
