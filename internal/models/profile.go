// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package models

import "time"

// Profile is the public identity that receives anonymous messages and owns polls.
// ID is assigned by the external identity provider.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"` // opaque URL from asset storage
	Bio       string    `json:"bio,omitempty"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicProfile is what the share page exposes about a recipient.
type PublicProfile struct {
	Username  string `json:"username"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Public strips the identity key from a profile.
func (p *Profile) Public() PublicProfile {
	return PublicProfile{
		Username:  p.Username,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		Bio:       p.Bio,
		Website:   p.Website,
	}
}

// CreateProfileRequest is sent by the identity collaborator on sign-up.
type CreateProfileRequest struct {
	Username  string `json:"username" validate:"required,username"`
	FullName  string `json:"full_name" validate:"max=100"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=2048"`
	Bio       string `json:"bio" validate:"max=500"`
	Website   string `json:"website" validate:"omitempty,url,max=2048"`
}

// UpdateProfileRequest changes display fields. Username is immutable.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=2048"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Website   *string `json:"website" validate:"omitempty,max=2048"`
}
