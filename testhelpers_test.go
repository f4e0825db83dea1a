package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	auth "github.com/goliatone/go-campus-auth"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:authtest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		db.Close()
	})

	ctx := context.Background()
	models := []any{
		(*auth.User)(nil),
		(*auth.OTPChallenge)(nil),
		(*auth.AccessToken)(nil),
		(*auth.Group)(nil),
		(*auth.GroupMembership)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("create table for %T: %v", model, err)
		}
	}

	return db
}

func newTestRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()
	return auth.NewRepositoryManager(newTestDB(t))
}

// fixedOTPSource yields the same code on every draw.
func fixedOTPSource(value int) auth.RandomSource {
	return auth.RandomSourceFunc(func(int) int { return value })
}

var (
	testHashOnce sync.Once
	testHash     string
)

// testPasswordHash returns a shared bcrypt hash of testPassword, so
// tests that only need a stored credential skip the hashing cost.
func testPasswordHash(t *testing.T) string {
	t.Helper()
	testHashOnce.Do(func() {
		var err error
		testHash, err = auth.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
	})
	return testHash
}

const (
	testPassword = "correct-horse-42"
	testEmail    = "jane.doe@vitapstudent.ac.in"
)

type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt auth.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) Events() []auth.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]auth.ActivityEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *capturingSink) Types() []auth.ActivityEventType {
	types := []auth.ActivityEventType{}
	for _, evt := range c.Events() {
		types = append(types, evt.EventType)
	}
	return types
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// recordingNotifier captures outbound codes instead of sending them.
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []sentOTP
	err   error
	ready chan struct{}
}

type sentOTP struct {
	Address string
	Code    string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ready: make(chan struct{}, 16)}
}

func (n *recordingNotifier) Send(_ context.Context, address, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		n.ready <- struct{}{}
		return n.err
	}
	n.sent = append(n.sent, sentOTP{Address: address, Code: code})
	n.ready <- struct{}{}
	return nil
}

func (n *recordingNotifier) Sent() []sentOTP {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentOTP, len(n.sent))
	copy(out, n.sent)
	return out
}

// WaitForSend blocks until the next delivery attempt finished, since
// the register handler dispatches mail on its own goroutine.
func (n *recordingNotifier) WaitForSend(t *testing.T) {
	t.Helper()
	select {
	case <-n.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for otp delivery")
	}
}

// seedAccount creates an account directly in the store, bypassing the
// register command, with the shared test password already hashed.
func seedAccount(t *testing.T, repo auth.RepositoryManager, email string, role auth.UserRole, active bool) *auth.User {
	t.Helper()
	ctx := context.Background()

	user, err := repo.Users().Register(ctx, &auth.User{
		Email:        email,
		Username:     auth.NormalizeEmail(email),
		Role:         role,
		PasswordHash: testPasswordHash(t),
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}

	if active {
		user, err = repo.Users().Activate(ctx, user.ID)
		if err != nil {
			t.Fatalf("activate seeded account: %v", err)
		}
	}

	return user
}
