package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/kidcheck/internal/model"
)

func newTestManager(t *testing.T) (*Manager, *time.Time) {
	t.Helper()
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	m := NewManager("test-secret", time.Hour, store)
	m.SetClock(func() time.Time { return now })
	return m, &now
}

func TestManagerIssueResolve(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	tok, err := m.Issue(ctx, model.ParentActor(5))
	require.NoError(t, err)

	actor, err := m.Resolve(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, model.ParentActor(5), actor)

	admTok, err := m.Issue(ctx, model.AdminActor(1))
	require.NoError(t, err)
	actor, err = m.Resolve(ctx, admTok.Token)
	require.NoError(t, err)
	assert.Equal(t, model.AdminActor(1), actor)
}

func TestManagerResolveAnonymous(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		actor, err := m.Resolve(ctx, raw)
		require.NoError(t, err)
		assert.True(t, actor.IsAnonymous(), raw)
	}

	_, err := m.Issue(ctx, model.Anonymous())
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestManagerRevoke(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	tok, err := m.Issue(ctx, model.ParentActor(9))
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, tok.Token))

	actor, err := m.Resolve(ctx, tok.Token)
	require.NoError(t, err)
	assert.True(t, actor.IsAnonymous())

	// revoking twice or with junk is harmless
	assert.NoError(t, m.Revoke(ctx, tok.Token))
	assert.NoError(t, m.Revoke(ctx, "junk"))
}

func TestManagerExpiry(t *testing.T) {
	ctx := context.Background()
	m, now := newTestManager(t)

	tok, err := m.Issue(ctx, model.ParentActor(2))
	require.NoError(t, err)

	*now = now.Add(2 * time.Hour)
	actor, err := m.Resolve(ctx, tok.Token)
	require.NoError(t, err)
	assert.True(t, actor.IsAnonymous())
}

func TestManagerRejectsForeignSecret(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	other := NewManager("other-secret", time.Hour, NewMemoryStore())

	tok, err := other.Issue(ctx, model.AdminActor(1))
	require.NoError(t, err)

	actor, err := m.Resolve(ctx, tok.Token)
	require.NoError(t, err)
	assert.True(t, actor.IsAnonymous())
}

func TestAuthorize(t *testing.T) {
	parent := model.ParentActor(1)
	admin := model.AdminActor(1)
	anon := model.Anonymous()

	cases := []struct {
		op     Operation
		parent error
		admin  error
	}{
		{OpListOwnRequests, nil, model.ErrForbidden},
		{OpListAllRequests, model.ErrForbidden, nil},
		{OpCreateRequest, nil, model.ErrForbidden},
		{OpUpdateRequestStatus, model.ErrForbidden, nil},
		{OpDeleteRequest, nil, nil},
		{OpManageChildren, nil, model.ErrForbidden},
		{OpViewAnalytics, model.ErrForbidden, nil},
		{OpRotateAdminPassword, model.ErrForbidden, nil},
	}
	for _, tc := range cases {
		t.Run(tc.op.String(), func(t *testing.T) {
			assert.ErrorIs(t, Authorize(anon, tc.op), model.ErrUnauthorized)
			if tc.parent == nil {
				assert.NoError(t, Authorize(parent, tc.op))
			} else {
				assert.ErrorIs(t, Authorize(parent, tc.op), tc.parent)
			}
			if tc.admin == nil {
				assert.NoError(t, Authorize(admin, tc.op))
			} else {
				assert.ErrorIs(t, Authorize(admin, tc.op), tc.admin)
			}
		})
	}
}

func TestActorContext(t *testing.T) {
	ctx := context.Background()
	assert.True(t, ActorFrom(ctx).IsAnonymous())
	ctx = WithActor(ctx, model.AdminActor(3))
	assert.Equal(t, model.AdminActor(3), ActorFrom(ctx))
}
