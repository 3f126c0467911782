package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/constructtrack/internal/clock"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	"github.com/smallbiznis/constructtrack/internal/testutil"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"github.com/smallbiznis/constructtrack/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (userdomain.Service, context.Context) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    testutil.OpenDB(t, &userdomain.User{}),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, companycontext.WithCompanyID(context.Background(), node.Generate())
}

func TestCreateUser(t *testing.T) {
	svc, ctx := setup(t)

	user, err := svc.Create(ctx, userdomain.CreateRequest{Name: "Ryan", Role: "Lead Carpenter", HourlyRate: 2500})
	require.NoError(t, err)
	assert.Equal(t, userdomain.AccessRoleEmployee, user.AccessRole)
	assert.False(t, user.IsClockedIn)
	assert.True(t, user.ClockStateValid())

	got, err := svc.Get(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), got.HourlyRate)
	assert.Nil(t, got.ClockInTime)
}

func TestCreateUserValidation(t *testing.T) {
	svc, ctx := setup(t)

	_, err := svc.Create(context.Background(), userdomain.CreateRequest{Name: "A", Role: "B"})
	assert.ErrorIs(t, err, userdomain.ErrInvalidCompany)

	_, err = svc.Create(ctx, userdomain.CreateRequest{Name: "", Role: "B"})
	assert.ErrorIs(t, err, userdomain.ErrInvalidName)

	_, err = svc.Create(ctx, userdomain.CreateRequest{Name: "A", Role: "B", HourlyRate: -1})
	assert.ErrorIs(t, err, userdomain.ErrInvalidHourlyRate)

	_, err = svc.Create(ctx, userdomain.CreateRequest{Name: "A", Role: "B", AccessRole: "owner"})
	assert.ErrorIs(t, err, userdomain.ErrInvalidAccessRole)
}

func TestUpdateUserRate(t *testing.T) {
	svc, ctx := setup(t)
	user, err := svc.Create(ctx, userdomain.CreateRequest{Name: "Ryan", Role: "Lead Carpenter", HourlyRate: 2500})
	require.NoError(t, err)

	rate := int64(3000)
	updated, err := svc.Update(ctx, userdomain.UpdateRequest{ID: user.ID.String(), HourlyRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), updated.HourlyRate)
	assert.Equal(t, "Ryan", updated.Name)

	_, err = svc.Update(ctx, userdomain.UpdateRequest{ID: "123"})
	assert.ErrorIs(t, err, userdomain.ErrNotFound)
}

func TestListIsCompanyScoped(t *testing.T) {
	svc, ctx := setup(t)
	_, err := svc.Create(ctx, userdomain.CreateRequest{Name: "Zed", Role: "Laborer"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, userdomain.CreateRequest{Name: "Amy", Role: "Electrician"})
	require.NoError(t, err)

	other := companycontext.WithCompanyID(context.Background(), snowflake.ID(99))
	_, err = svc.Create(other, userdomain.CreateRequest{Name: "Bob", Role: "Plumber"})
	require.NoError(t, err)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Amy", users[0].Name)
}
