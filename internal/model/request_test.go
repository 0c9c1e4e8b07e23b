package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/kidcheck/internal/model"
)

func TestParseRequestType(t *testing.T) {
	typ, err := model.ParseRequestType(" CheckIn ")
	require.NoError(t, err)
	assert.Equal(t, model.RequestCheckin, typ)

	_, err = model.ParseRequestType("pickup")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestParseStatus(t *testing.T) {
	st, err := model.ParseStatus("approved")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, st)

	_, err = model.ParseStatus("done")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestNewRequestIsPending(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	r := model.NewRequest(7, "Bo", "2nd", model.RequestCheckin, "", now)

	assert.Equal(t, model.StatusPending, r.Status)
	assert.Nil(t, r.ResponseTime)
	assert.Nil(t, r.Feedback)
	assert.Equal(t, now, r.CreatedAt)
}

func TestRequestDecide(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	decided := created.Add(15 * time.Minute)

	t.Run("approve pending", func(t *testing.T) {
		r := model.NewRequest(1, "Bo", "2nd", model.RequestCheckin, "", created)
		require.NoError(t, r.Decide(model.StatusApproved, "ok", decided))

		assert.Equal(t, model.StatusApproved, r.Status)
		require.NotNil(t, r.ResponseTime)
		assert.Equal(t, decided, *r.ResponseTime)
		require.NotNil(t, r.Feedback)
		assert.Equal(t, "ok", *r.Feedback)
		assert.Equal(t, decided, r.UpdatedAt)
	})

	t.Run("same status twice is idempotent", func(t *testing.T) {
		r := model.NewRequest(1, "Bo", "2nd", model.RequestCheckout, "", created)
		require.NoError(t, r.Decide(model.StatusRejected, "late", decided))
		later := decided.Add(time.Minute)
		require.NoError(t, r.Decide(model.StatusRejected, "late", later))

		assert.Equal(t, model.StatusRejected, r.Status)
		assert.Equal(t, "late", *r.Feedback)
		assert.Equal(t, later, *r.ResponseTime)
	})

	t.Run("terminal to other terminal fails", func(t *testing.T) {
		r := model.NewRequest(1, "Bo", "2nd", model.RequestCheckin, "", created)
		require.NoError(t, r.Decide(model.StatusApproved, "", decided))

		err := r.Decide(model.StatusRejected, "", decided.Add(time.Minute))
		assert.ErrorIs(t, err, model.ErrInvalidInput)
		assert.Equal(t, model.StatusApproved, r.Status)
		assert.Equal(t, decided, *r.ResponseTime)
	})

	t.Run("back to pending fails", func(t *testing.T) {
		r := model.NewRequest(1, "Bo", "2nd", model.RequestCheckin, "", created)
		err := r.Decide(model.StatusPending, "", decided)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
		assert.Nil(t, r.ResponseTime)
	})
}

func TestActor(t *testing.T) {
	assert.True(t, model.Anonymous().IsAnonymous())
	assert.True(t, model.ParentActor(3).IsParent())
	assert.True(t, model.AdminActor(1).IsAdmin())
	assert.Equal(t, "parent:3", model.ParentActor(3).String())
	assert.True(t, model.Actor{}.IsAnonymous())
}
