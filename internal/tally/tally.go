// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

// Package tally turns stored poll responses into per-option counts and
// percentages.
//
// Results are recomputed from the responses on every read. There are no cached
// counters, so a tally can never drift from the stored votes. Options are
// always reported in creation order, never by popularity.
package tally

import (
	"context"
	"fmt"
	"math"

	"github.com/tomtom215/whisperbox/internal/models"
)

// Compute builds the tally for poll from per-option counts. Counts for ids
// that are not options of the poll are ignored.
func Compute(poll *models.Poll, counts map[string]int) models.PollTally {
	t := models.PollTally{
		PollID:  poll.ID,
		Options: make([]models.OptionTally, len(poll.Options)),
	}
	for _, o := range poll.Options {
		t.TotalResponses += counts[o.ID]
	}
	for i, o := range poll.Options {
		n := counts[o.ID]
		t.Options[i] = models.OptionTally{
			OptionID:   o.ID,
			OptionText: o.OptionText,
			Count:      n,
			Percentage: Percentage(n, t.TotalResponses),
		}
	}
	return t
}

// Percentage returns round(count/total*100), or 0 when total is 0.
// Halves round up.
func Percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(count)*100/float64(total) + 0.5))
}

// Store is the read side tally needs.
type Store interface {
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	ListPolls(ctx context.Context, ownerID string) ([]models.Poll, error)
	ListActivePolls(ctx context.Context, ownerID string) ([]models.Poll, error)
	VoteCounts(ctx context.Context, pollID string) (map[string]int, error)
}

// Service reads polls and their votes and attaches fresh tallies.
type Service struct {
	store Store
}

// NewService creates a tally service over store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Tally returns the current results of one poll.
func (s *Service) Tally(ctx context.Context, pollID string) (*models.PollTally, error) {
	p, err := s.Poll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return &p.Tally, nil
}

// Poll returns a poll together with its current results.
func (s *Service) Poll(ctx context.Context, pollID string) (*models.PollWithTally, error) {
	poll, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return s.withTally(ctx, poll)
}

// OwnerPolls lists every poll of ownerID with results, newest first.
func (s *Service) OwnerPolls(ctx context.Context, ownerID string) ([]models.PollWithTally, error) {
	polls, err := s.store.ListPolls(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.withTallies(ctx, polls)
}

// ActivePolls lists the polls of ownerID that currently accept votes.
func (s *Service) ActivePolls(ctx context.Context, ownerID string) ([]models.PollWithTally, error) {
	polls, err := s.store.ListActivePolls(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.withTallies(ctx, polls)
}

func (s *Service) withTallies(ctx context.Context, polls []models.Poll) ([]models.PollWithTally, error) {
	out := make([]models.PollWithTally, 0, len(polls))
	for i := range polls {
		p, err := s.withTally(ctx, &polls[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *Service) withTally(ctx context.Context, poll *models.Poll) (*models.PollWithTally, error) {
	counts, err := s.store.VoteCounts(ctx, poll.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes for poll %s: %w", poll.ID, err)
	}
	return &models.PollWithTally{Poll: *poll, Tally: Compute(poll, counts)}, nil
}
