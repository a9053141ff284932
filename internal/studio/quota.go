package studio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MinutesToSeconds converts a quota entered in minutes to the wire value.
// Nil, zero, and negative inputs mean "no limit" and map to nil.
func MinutesToSeconds(minutes *int) *int {
	if minutes == nil || *minutes <= 0 {
		return nil
	}
	seconds := *minutes * 60
	return &seconds
}

// LimitInputMinutes renders a stored quota (seconds) for a minutes input
// field: whole minutes, or "" when there is no limit.
func LimitInputMinutes(seconds *int) string {
	if seconds == nil || *seconds == 0 {
		return ""
	}
	return strconv.Itoa(*seconds / 60)
}

// FormatUsage renders a quota amount in seconds as "12m 05s", or "N/A".
func FormatUsage(seconds *int) string {
	if seconds == nil {
		return "N/A"
	}
	return fmt.Sprintf("%dm %02ds", *seconds/60, *seconds%60)
}

// UsagePercent returns usage as a share of limit, capped at 100. Missing or
// zero values yield 0.
func UsagePercent(usage, limit *int) float64 {
	if usage == nil || limit == nil || *usage == 0 || *limit == 0 {
		return 0
	}
	return math.Min(float64(*usage)/float64(*limit)*100, 100)
}

// FormatDuration renders a video length as m:ss.
func FormatDuration(seconds *float64) string {
	if seconds == nil {
		return "-"
	}
	total := int(math.Floor(*seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// NormalizeMonth converts a month filter to the MM.YYYY form the API
// expects. It accepts YYYY-MM and MM.YYYY; "" passes through.
func NormalizeMonth(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if ts, err := time.Parse("2006-01", value); err == nil {
		return ts.Format("01.2006"), nil
	}
	if ts, err := time.Parse("01.2006", value); err == nil {
		return ts.Format("01.2006"), nil
	}
	return "", fmt.Errorf("invalid month %q (want YYYY-MM or MM.YYYY)", value)
}
