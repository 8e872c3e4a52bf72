// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

// Package analytics derives weekly inbox statistics from raw message
// timestamps.
//
// Nothing here is persisted. A summary is computed on demand from a bounded
// window (the current and previous week) plus two counts, so it is safe to run
// concurrently and repeatedly.
//
// Two windows are in play:
//   - Weekly totals use calendar weeks: this week runs from local midnight of
//     the configured first weekday to now, last week is the seven days before.
//   - The day-of-week histogram covers the trailing seven days ending at now.
//
// The windows overlap differently depending on the current weekday, so their
// sums are not expected to match.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/models"
)

// Input is everything Summarize needs. Timestamps must cover at least
// [WeekStart(now)-7d, now].
type Input struct {
	RecipientID   string
	Now           time.Time
	TotalMessages int
	Timestamps    []time.Time
	TotalPolls    int
	PollResponses int
}

// Summarize computes the inbox summary. It is a pure function of its input.
func (c Calendar) Summarize(in Input) models.InboxSummary {
	thisWeek, lastWeek := c.WeeklyTotals(in.Timestamps, in.Now)
	return models.InboxSummary{
		RecipientID:             in.RecipientID,
		GeneratedAt:             in.Now.UTC(),
		WeekStart:               c.WeekStart(in.Now),
		TotalMessages:           in.TotalMessages,
		MessagesThisWeek:        thisWeek,
		MessagesLastWeek:        lastWeek,
		GrowthPercent:           GrowthPercent(thisWeek, lastWeek),
		ByDayOfWeek:             c.DayOfWeekHistogram(in.Timestamps, in.Now),
		DayLabels:               c.DayLabels(),
		EngagementRate:          EngagementRate(thisWeek, in.TotalMessages),
		TotalPolls:              in.TotalPolls,
		TotalPollResponses:      in.PollResponses,
		AverageResponsesPerPoll: AverageResponses(in.TotalPolls, in.PollResponses),
	}
}

// Store is the read side analytics needs.
type Store interface {
	CountMessages(ctx context.Context, recipientID string) (int, error)
	MessageTimestamps(ctx context.Context, recipientID string, from, to time.Time) ([]time.Time, error)
	PollStats(ctx context.Context, ownerID string) (polls, responses int, err error)
}

// Service reads the bounded window from the store and summarizes it.
type Service struct {
	store Store
	cal   Calendar
}

// NewService creates an analytics service using the configured calendar.
func NewService(store Store, cfg config.AnalyticsConfig) *Service {
	return &Service{
		store: store,
		cal:   Calendar{Location: cfg.Location(), FirstDay: cfg.WeekStart()},
	}
}

// Calendar returns the calendar summaries are computed in.
func (s *Service) Calendar() Calendar {
	return s.cal
}

// Summarize returns the summary for recipientID as of now.
func (s *Service) Summarize(ctx context.Context, recipientID string, now time.Time) (*models.InboxSummary, error) {
	from := s.cal.WeekStart(now).AddDate(0, 0, -7)
	if h := now.Add(-7 * 24 * time.Hour); h.Before(from) {
		from = h
	}

	// MessageTimestamps is half-open; include a message stamped exactly at now.
	ts, err := s.store.MessageTimestamps(ctx, recipientID, from, now.Add(time.Microsecond))
	if err != nil {
		return nil, fmt.Errorf("failed to load message window: %w", err)
	}
	total, err := s.store.CountMessages(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	polls, responses, err := s.store.PollStats(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load poll stats: %w", err)
	}

	summary := s.cal.Summarize(Input{
		RecipientID:   recipientID,
		Now:           now,
		TotalMessages: total,
		Timestamps:    ts,
		TotalPolls:    polls,
		PollResponses: responses,
	})

	logging.Ctx(ctx).Debug().
		Str("recipient_id", recipientID).
		Int("window_messages", len(ts)).
		Int("this_week", summary.MessagesThisWeek).
		Msg("Inbox summary computed")
	return &summary, nil
}
