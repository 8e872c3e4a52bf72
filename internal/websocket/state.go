// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package websocket

import "sync/atomic"

// SubscriptionState is the lifecycle state of one live subscription.
type SubscriptionState int32

const (
	StateConnecting SubscriptionState = iota
	StateActive
	StateError
	StateReconnecting
	StateClosed
)

func (s SubscriptionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// validTransitions lists the allowed moves. Closed is terminal.
var validTransitions = map[SubscriptionState][]SubscriptionState{
	StateConnecting:   {StateActive, StateError, StateClosed},
	StateActive:       {StateError, StateClosed},
	StateError:        {StateReconnecting, StateClosed},
	StateReconnecting: {StateActive, StateError, StateClosed},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to SubscriptionState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateMachine holds a SubscriptionState and rejects illegal transitions.
type stateMachine struct {
	v        atomic.Int32
	onChange func(from, to SubscriptionState)
}

func (m *stateMachine) load() SubscriptionState {
	return SubscriptionState(m.v.Load())
}

// transition moves to `to` if legal and returns whether it did.
func (m *stateMachine) transition(to SubscriptionState) bool {
	for {
		from := m.load()
		if !CanTransition(from, to) {
			return false
		}
		if m.v.CompareAndSwap(int32(from), int32(to)) {
			if m.onChange != nil {
				m.onChange(from, to)
			}
			return true
		}
	}
}
