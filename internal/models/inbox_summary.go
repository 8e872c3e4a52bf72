// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package models

import "time"

// InboxSummary is the derived analytics view over one recipient's messages.
// It is recomputed per request and never stored.
//
// MessagesThisWeek/MessagesLastWeek use calendar-week windows, while
// ByDayOfWeek covers the trailing seven days. The two are not expected to agree.
type InboxSummary struct {
	RecipientID      string    `json:"recipient_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	WeekStart        time.Time `json:"week_start"`
	TotalMessages    int       `json:"total_messages"`
	MessagesThisWeek int       `json:"messages_this_week"`
	MessagesLastWeek int       `json:"messages_last_week"`
	GrowthPercent    int       `json:"growth_percent"`
	ByDayOfWeek      [7]int    `json:"by_day_of_week"` // index 0 = configured first day of week
	DayLabels        [7]string `json:"day_labels"`
	EngagementRate   int       `json:"engagement_rate"`

	TotalPolls              int     `json:"total_polls"`
	TotalPollResponses      int     `json:"total_poll_responses"`
	AverageResponsesPerPoll float64 `json:"average_responses_per_poll"`
}
