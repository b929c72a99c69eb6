// Package timesync computes the process-wide clock correction used to
// normalize file modification times across machines with clock drift.
package timesync

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/beevik/ntp"
)

// DefaultHost is the NTP pool queried at startup.
const DefaultHost = "pool.ntp.org"

// Offset returns the difference between authoritative NTP time and the local
// clock, in whole seconds rounded up. A lookup failure is logged and yields a
// zero offset, so synchronization proceeds uncorrected rather than failing.
func Offset(host string) int64 {
	resp, err := ntp.Query(host)
	if err != nil {
		slog.Error("ntp lookup failed, using zero clock offset", "host", host, "error", err)
		return 0
	}
	if err := resp.Validate(); err != nil {
		slog.Error("ntp response invalid, using zero clock offset", "host", host, "error", err)
		return 0
	}

	offset := int64(math.Ceil(resp.ClockOffset.Seconds()))
	slog.Info("ntp clock offset measured",
		"host", host,
		"serverTime", resp.Time.Format(time.TimeOnly),
		"offsetSeconds", offset,
	)
	return offset
}

// Corrected applies the clock offset to a raw unix-seconds timestamp.
func Corrected(raw, offset int64) int64 {
	return raw + offset
}

// CorrectedNow returns the current wall clock as corrected unix seconds,
// rounding up partial seconds the same way file mtimes are rounded.
func CorrectedNow(offset int64) int64 {
	now := float64(time.Now().UnixNano()) / float64(time.Second)
	return int64(math.Ceil(now)) + offset
}

// ToUnix converts an ISO-8601 timestamp to UTC unix seconds. When hasTZ is
// true the string must carry an explicit timezone (the remote API always
// does); otherwise the stamp is interpreted as already being UTC.
func ToUnix(iso string, hasTZ bool) (int64, error) {
	if hasTZ {
		t, err := time.Parse(time.RFC3339, iso)
		if err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", iso, err)
		}
		return t.UTC().Unix(), nil
	}

	t, err := time.ParseInLocation("2006-01-02T15:04:05", iso, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("parse naive timestamp %q: %w", iso, err)
	}
	return t.Unix(), nil
}
