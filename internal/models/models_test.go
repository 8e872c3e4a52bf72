// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestMessageFilter_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filter MessageFilter
		want   bool
	}{
		{MessageFilterAll, true},
		{MessageFilterUnread, true},
		{MessageFilterAnswered, true},
		{"", false},
		{"ALL", false},
		{"read", false},
	}
	for _, tt := range tests {
		if got := tt.filter.Valid(); got != tt.want {
			t.Errorf("MessageFilter(%q).Valid() = %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestPoll_AcceptsVotes(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name      string
		active    bool
		expiresAt *time.Time
		expired   bool
		accepts   bool
	}{
		{"active without expiry", true, nil, false, true},
		{"active before expiry", true, &future, false, true},
		{"active at expiry", true, &now, true, false},
		{"active after expiry", true, &past, true, false},
		{"inactive", false, nil, false, false},
		{"inactive and expired", false, &past, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &Poll{IsActive: tt.active, ExpiresAt: tt.expiresAt}
			if got := p.Expired(now); got != tt.expired {
				t.Errorf("Expired() = %v, want %v", got, tt.expired)
			}
			if got := p.AcceptsVotes(now); got != tt.accepts {
				t.Errorf("AcceptsVotes() = %v, want %v", got, tt.accepts)
			}
		})
	}
}

func TestProfile_PublicOmitsIdentity(t *testing.T) {
	t.Parallel()

	p := &Profile{
		ID:       "idp|4f1c2b",
		Username: "river_song",
		FullName: "River Song",
		Bio:      "spoilers",
	}
	data, err := json.Marshal(p.Public())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	body := string(data)
	if strings.Contains(body, p.ID) || strings.Contains(body, `"id"`) {
		t.Errorf("public profile leaks the identity key: %s", body)
	}
	if !strings.Contains(body, `"username":"river_song"`) {
		t.Errorf("public profile missing username: %s", body)
	}
	if strings.Contains(body, "avatar_url") {
		t.Errorf("empty optional fields should be omitted: %s", body)
	}
}

func TestMessageReceipt_HasNoRecipient(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(MessageReceipt{ID: "m1", CreatedAt: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "recipient") {
		t.Errorf("receipt exposes the recipient: %s", data)
	}
}
