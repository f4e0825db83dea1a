package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-campus-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachinePendingToActive(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sink := &capturingSink{}

	sm := auth.NewAccountStateMachine(repo.Users(),
		auth.WithStateMachineActivitySink(sink),
		auth.WithStateMachineLogger(testLogger{}),
	)

	user := seedAccount(t, repo, testEmail, auth.RoleStudent, false)
	actor := auth.ActorRef{ID: user.ID.String(), Type: "user"}

	updated, err := sm.Transition(ctx, actor, user, auth.StatusActive, auth.WithTransitionReason("otp verified"))
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.True(t, updated.Verified)
	assert.Equal(t, auth.StatusActive, sm.CurrentStatus(updated))

	stored, err := repo.Users().GetByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.True(t, stored.Active)
	assert.True(t, stored.Verified)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, auth.ActivityEventStatusChanged, events[0].EventType)
	assert.Equal(t, auth.StatusPending, events[0].FromStatus)
	assert.Equal(t, auth.StatusActive, events[0].ToStatus)
	assert.Equal(t, "otp verified", events[0].Metadata["reason"])
}

func TestStateMachineActiveIsTerminal(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sm := auth.NewAccountStateMachine(repo.Users())

	user := seedAccount(t, repo, testEmail, auth.RoleStudent, true)

	_, err := sm.Transition(ctx, auth.ActorRef{}, user, auth.StatusPending)
	require.ErrorIs(t, err, auth.ErrTerminalState)
}

func TestStateMachineSameStatusIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	sink := &capturingSink{}
	sm := auth.NewAccountStateMachine(repo.Users(), auth.WithStateMachineActivitySink(sink))

	user := seedAccount(t, repo, testEmail, auth.RoleStudent, false)

	updated, err := sm.Transition(ctx, auth.ActorRef{}, user, auth.StatusPending)
	require.NoError(t, err)
	assert.Same(t, user, updated)
	assert.Empty(t, sink.Events())
}

func TestStateMachineRejectsEmptyTarget(t *testing.T) {
	repo := newTestRepo(t)
	sm := auth.NewAccountStateMachine(repo.Users())

	user := seedAccount(t, repo, testEmail, auth.RoleStudent, false)

	_, err := sm.Transition(context.Background(), auth.ActorRef{}, user, "")
	require.ErrorIs(t, err, auth.ErrInvalidTransition)
}

func TestStateMachineRejectsNilUser(t *testing.T) {
	repo := newTestRepo(t)
	sm := auth.NewAccountStateMachine(repo.Users())

	_, err := sm.Transition(context.Background(), auth.ActorRef{}, nil, auth.StatusActive)
	require.ErrorIs(t, err, auth.ErrInvalidTransition)
	assert.Equal(t, "", sm.CurrentStatus(nil))
}
