// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/whisperbox/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

func TestValidateStruct_Requests(t *testing.T) {
	t.Parallel()

	const optionID = "6f1c2b1e-8a2d-4c1e-9b7a-2d3e4f5a6b7c"
	respondent := "voter-1"
	empty := ""

	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{"message ok", &models.SendMessageRequest{Content: "hi"}, "", ""},
		{"message empty", &models.SendMessageRequest{}, "content", "required"},
		{"vote ok", &models.CastVoteRequest{OptionID: optionID, RespondentID: &respondent}, "", ""},
		{"vote bad option", &models.CastVoteRequest{OptionID: "opt-1"}, "option_id", "uuid"},
		{"vote empty respondent", &models.CastVoteRequest{OptionID: optionID, RespondentID: &empty}, "respondent_id", "min"},
		{"poll one option", &models.CreatePollRequest{Question: "q?", Options: []string{"a"}}, "options", "min"},
		{"mark read empty", &models.MarkReadRequest{}, "ids", "required"},
		{"profile ok", &models.CreateProfileRequest{Username: "Alice_01"}, "", ""},
		{"profile bad username", &models.CreateProfileRequest{Username: "a-b"}, "username", "username"},
		{"profile bad website", &models.CreateProfileRequest{Username: "alice", Website: "nope"}, "website", "url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			verr := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation error")
			}
			got := verr.Errors()[0]
			if got.Field() != tt.wantField || got.Tag() != tt.wantTag {
				t.Errorf("field/tag = %s/%s, want %s/%s", got.Field(), got.Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	single := ValidateStruct(&models.SendMessageRequest{}).ToAPIError()
	if single.Code != ErrorCode {
		t.Errorf("code = %s", single.Code)
	}
	if single.Message != "content is required" {
		t.Errorf("message = %q", single.Message)
	}
	if _, ok := single.Details["value"]; ok {
		t.Error("details must not echo the rejected value")
	}

	multi := ValidateStruct(&models.CreatePollRequest{}).ToAPIError()
	fields, ok := multi.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("details = %#v", multi.Details)
	}
	if !strings.Contains(multi.Message, "question is required") {
		t.Errorf("message = %q", multi.Message)
	}
}

func TestMessageFilterTag(t *testing.T) {
	t.Parallel()

	type query struct {
		Filter string `json:"filter" validate:"message_filter"`
	}
	for _, f := range []string{"", "all", "unread", "answered"} {
		if verr := ValidateStruct(&query{Filter: f}); verr != nil {
			t.Errorf("filter %q rejected: %v", f, verr)
		}
	}
	if verr := ValidateStruct(&query{Filter: "starred"}); verr == nil {
		t.Error("expected unknown filter to be rejected")
	}
}
