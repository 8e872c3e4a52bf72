// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests. Concurrent CGO calls
// from many parallel tests can hang under CI resource pressure, so a test
// holds the semaphore for its whole lifetime.
var testDBSemaphore = make(chan struct{}, 1)

var testDBMutex sync.Mutex

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	return setupTestDBWithPolicy(t, config.PollsConfig{})
}

// setupTestDBWithPolicy creates an in-memory database with a 120s creation timeout.
func setupTestDBWithPolicy(t *testing.T, polls config.PollsConfig) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
	}

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		testDBMutex.Lock()
		db, err := New(cfg, polls)
		testDBMutex.Unlock()
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

// createTestProfile inserts a profile with a random id and the given username.
func createTestProfile(t *testing.T, db *DB, username string) *models.Profile {
	t.Helper()
	p, err := db.CreateProfile(context.Background(), uuid.New().String(), &models.CreateProfileRequest{
		Username: username,
		FullName: "Test " + username,
	})
	if err != nil {
		t.Fatalf("CreateProfile(%q): %v", username, err)
	}
	return p
}

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func checkErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

func TestNew_InMemory(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got := db.RespondentPolicy(); got != config.RespondentPolicyAllowAnonymous {
		t.Errorf("RespondentPolicy() = %q, want %q", got, config.RespondentPolicyAllowAnonymous)
	}
	if db.polls.MaxOptions != defaultMaxPollOptions {
		t.Errorf("MaxOptions = %d, want %d", db.polls.MaxOptions, defaultMaxPollOptions)
	}
}

func TestNew_SchemaIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	checkNoError(t, db.initialize())
	checkNoError(t, db.initialize())
}

func TestStamp_Monotonic(t *testing.T) {
	db := setupTestDB(t)

	fixed := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return fixed })

	prev := db.stamp()
	for i := 0; i < 100; i++ {
		next := db.stamp()
		if !next.After(prev) {
			t.Fatalf("stamp %d = %v, not after %v", i, next, prev)
		}
		prev = next
	}
}

func TestCreateProfile(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := createTestProfile(t, db, "Alice_01")
	if p.Username != "alice_01" {
		t.Errorf("Username = %q, want lowercased", p.Username)
	}

	tests := []struct {
		name     string
		id       string
		username string
		wantErr  error
	}{
		{"duplicate username", uuid.New().String(), "ALICE_01", ErrUsernameTaken},
		{"duplicate id", p.ID, "someone_else", ErrProfileExists},
		{"too short", uuid.New().String(), "ab", ErrInvalidUsername},
		{"bad characters", uuid.New().String(), "al-ice", ErrInvalidUsername},
		{"missing id", "  ", "bob", ErrMissingIdentity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.CreateProfile(ctx, tt.id, &models.CreateProfileRequest{Username: tt.username})
			checkErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateProfile_ConcurrentSameUsername(t *testing.T) {
	db := setupTestDB(t)
	db.Conn().SetMaxOpenConns(concurrentPoolSize)
	ctx := context.Background()

	const signups = 30
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		taken     int
	)
	start := make(chan struct{})
	for i := 0; i < signups; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := db.CreateProfile(ctx, uuid.New().String(), &models.CreateProfileRequest{Username: "popular"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrUsernameTaken):
				taken++
			default:
				t.Errorf("unexpected error (kind %q): %v", KindOf(err), err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 || taken != signups-1 {
		t.Errorf("successes=%d taken=%d, want 1 and %d", successes, taken, signups-1)
	}
}

func insertProfileRow(ctx context.Context, q interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, id, username string) error {
	now := time.Now().UTC()
	_, err := q.ExecContext(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, username, "", "", "", "", now, now)
	return err
}

func TestInTx_UniqueViolationAtCommit(t *testing.T) {
	db := setupTestDB(t)
	db.Conn().SetMaxOpenConns(4)
	ctx := context.Background()

	winner, err := db.conn.BeginTx(ctx, nil)
	checkNoError(t, err)
	defer func() { _ = winner.Rollback() }()
	checkNoError(t, insertProfileRow(ctx, winner, uuid.New().String(), "contested"))

	err = db.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertProfileRow(ctx, tx, uuid.New().String(), "contested"); err != nil {
			return err
		}
		// The winner commits while this transaction still holds its insert.
		return winner.Commit()
	})
	checkErrorIs(t, err, errUniqueAtCommit)
	if KindOf(err) != ErrConflict {
		t.Errorf("kind = %q, want conflict", KindOf(err))
	}

	// The follow-up lookup names the key that was lost.
	checkErrorIs(t, profileConflict(ctx, db.conn, uuid.New().String(), "contested"), ErrUsernameTaken)
}

func TestWithConflictRetry(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	atCommit := fmt.Errorf("%w: %w", errUniqueAtCommit, errors.New("Constraint Error: duplicate key"))

	t.Run("retries a commit-time unique violation", func(t *testing.T) {
		calls := 0
		err := db.withConflictRetry(ctx, "test", func(context.Context) error {
			calls++
			if calls == 1 {
				return atCommit
			}
			return ErrDuplicateVote
		})
		checkErrorIs(t, err, ErrDuplicateVote)
		if calls != 2 {
			t.Errorf("calls = %d, want 2", calls)
		}
	})

	t.Run("does not retry store errors", func(t *testing.T) {
		calls := 0
		err := db.withConflictRetry(ctx, "test", func(context.Context) error {
			calls++
			return ErrPollNotFound
		})
		checkErrorIs(t, err, ErrPollNotFound)
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("exhausted retries are transient", func(t *testing.T) {
		calls := 0
		err := db.withConflictRetry(ctx, "test", func(context.Context) error {
			calls++
			return atCommit
		})
		checkErrorIs(t, err, ErrTransient)
		checkErrorIs(t, err, errUniqueAtCommit)
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})
}

func TestGetProfileByUsername(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created := createTestProfile(t, db, "carol")

	got, err := db.GetProfileByUsername(ctx, " CAROL ")
	checkNoError(t, err)
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}

	_, err = db.GetProfileByUsername(ctx, "nobody")
	checkErrorIs(t, err, ErrProfileNotFound)
	if !errors.Is(err, ErrReference) {
		t.Errorf("expected reference kind, got %v", KindOf(err))
	}
}

func TestUpdateProfile(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := createTestProfile(t, db, "dave")
	bio := "  hello there  "

	updated, err := db.UpdateProfile(ctx, p.ID, &models.UpdateProfileRequest{Bio: &bio})
	checkNoError(t, err)
	if updated.Bio != "hello there" {
		t.Errorf("Bio = %q", updated.Bio)
	}
	if updated.FullName != p.FullName {
		t.Errorf("FullName changed to %q", updated.FullName)
	}

	_, err = db.UpdateProfile(ctx, uuid.New().String(), &models.UpdateProfileRequest{Bio: &bio})
	checkErrorIs(t, err, ErrProfileNotFound)
}
