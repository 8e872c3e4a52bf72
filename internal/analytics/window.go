// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package analytics

import (
	"math"
	"time"
)

// Calendar is the local time zone and first weekday windows are computed in.
type Calendar struct {
	Location *time.Location
	FirstDay time.Weekday
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// dayIndex maps a weekday to 0..6 relative to the first day of the week.
func (c Calendar) dayIndex(d time.Weekday) int {
	return (int(d) - int(c.FirstDay) + 7) % 7
}

// WeekStart returns local midnight of the first day of the week containing now.
func (c Calendar) WeekStart(now time.Time) time.Time {
	local := now.In(c.loc())
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, c.loc())
	return midnight.AddDate(0, 0, -c.dayIndex(local.Weekday()))
}

// WeeklyTotals counts timestamps in this week [weekStart, now] and last week
// [weekStart-7 days, weekStart-1s]. The sub-second gap before weekStart
// belongs to neither week. Calendar days are used so a DST change does not
// shift the boundary.
func (c Calendar) WeeklyTotals(ts []time.Time, now time.Time) (thisWeek, lastWeek int) {
	start := c.WeekStart(now)
	prev := start.AddDate(0, 0, -7)
	lastEnd := start.Add(-time.Second)
	for _, t := range ts {
		switch {
		case t.Before(prev) || t.After(now):
		case t.Before(start):
			if !t.After(lastEnd) {
				lastWeek++
			}
		default:
			thisWeek++
		}
	}
	return thisWeek, lastWeek
}

// DayOfWeekHistogram buckets timestamps from the trailing seven days
// [now-7d, now] by local weekday. Index 0 is the first day of the week.
//
// This window is independent of WeeklyTotals; the two answer different
// questions and their sums usually differ.
func (c Calendar) DayOfWeekHistogram(ts []time.Time, now time.Time) [7]int {
	var hist [7]int
	from := now.Add(-7 * 24 * time.Hour)
	for _, t := range ts {
		if t.Before(from) || t.After(now) {
			continue
		}
		hist[c.dayIndex(t.In(c.loc()).Weekday())]++
	}
	return hist
}

// DayLabels returns short weekday names in histogram order.
func (c Calendar) DayLabels() [7]string {
	var labels [7]string
	for i := range labels {
		labels[i] = time.Weekday((int(c.FirstDay) + i) % 7).String()[:3]
	}
	return labels
}

// GrowthPercent is round((this-last)/last*100). With no messages last week
// growth is 100, whatever this week's count.
func GrowthPercent(thisWeek, lastWeek int) int {
	if lastWeek == 0 {
		return 100
	}
	return roundHalfUp(float64(thisWeek-lastWeek) / float64(lastWeek) * 100)
}

// EngagementRate is the share of all messages that arrived this week, in percent.
func EngagementRate(thisWeek, total int) int {
	if total <= 0 {
		return 0
	}
	return roundHalfUp(float64(thisWeek) / float64(total) * 100)
}

// AverageResponses is responses per poll rounded to one decimal.
func AverageResponses(polls, responses int) float64 {
	if polls <= 0 {
		return 0
	}
	return math.Floor(float64(responses)/float64(polls)*10+0.5) / 10
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
