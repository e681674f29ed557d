package domain

import (
	"fmt"
	"regexp"
	"time"
)

// Play counts are persisted as date-bucketed remote documents shared by all
// tracks: dailies for the last 7 calendar days, monthlies for the last 12
// calendar months, yearlies forever. Expired dailies are merged into their
// month, expired monthlies into their year. The total count for a track is
// always the sum across every document that currently exists.

// PlayCounts maps track ID to play count within one bucket document.
type PlayCounts map[string]int64

// Merge adds every count from other into p.
func (p PlayCounts) Merge(other PlayCounts) {
	for trackID, n := range other {
		p[trackID] += n
	}
}

// Date key layouts for the three bucket tiers.
const (
	DailyKeyLayout   = "2006-01-02"
	MonthlyKeyLayout = "2006-01"
	YearlyKeyLayout  = "2006"
)

// DailyKey returns the daily bucket key for t (UTC).
func DailyKey(t time.Time) string {
	return t.UTC().Format(DailyKeyLayout)
}

// MonthlyKey returns the monthly bucket key for t (UTC).
func MonthlyKey(t time.Time) string {
	return t.UTC().Format(MonthlyKeyLayout)
}

// YearlyKey returns the yearly bucket key for t (UTC).
func YearlyKey(t time.Time) string {
	return t.UTC().Format(YearlyKeyLayout)
}

// PlayCountPath returns the remote record path for a bucket document.
func PlayCountPath(userID, dateKey string) string {
	return fmt.Sprintf("user/%s/play_counts/%s", userID, dateKey)
}

var (
	monthKeyRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	yearKeyRe  = regexp.MustCompile(`^\d{4}$`)
)

// PeriodKind classifies a getTopTracks period argument.
type PeriodKind int

// Period kinds accepted by top-track queries.
const (
	PeriodWeek PeriodKind = iota
	PeriodMonth
	PeriodYear
	PeriodInvalid
)

// ParsePeriod classifies period as "week", a month key ("YYYY-MM"), or a
// year key ("YYYY").
func ParsePeriod(period string) PeriodKind {
	switch {
	case period == "week":
		return PeriodWeek
	case monthKeyRe.MatchString(period):
		return PeriodMonth
	case yearKeyRe.MatchString(period):
		return PeriodYear
	default:
		return PeriodInvalid
	}
}

// TrackPlayCount is one row of a top-tracks result.
type TrackPlayCount struct {
	TrackID string `json:"track_id"`
	Count   int64  `json:"count"`
}
