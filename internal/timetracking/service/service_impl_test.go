package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/constructtrack/internal/clock"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
	"github.com/smallbiznis/constructtrack/internal/config"
	"github.com/smallbiznis/constructtrack/internal/geo"
	"github.com/smallbiznis/constructtrack/internal/lock"
	"github.com/smallbiznis/constructtrack/internal/migration"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	projectrepo "github.com/smallbiznis/constructtrack/internal/project/repository"
	"github.com/smallbiznis/constructtrack/internal/testutil"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	"github.com/smallbiznis/constructtrack/internal/timetracking/repository"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	userrepo "github.com/smallbiznis/constructtrack/internal/user/repository"
	"github.com/smallbiznis/constructtrack/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc       timetrackingdomain.Service
	repo      timetrackingdomain.Repository
	users     userdomain.Repository
	projects  projectdomain.Repository
	db        *gorm.DB
	node      *snowflake.Node
	clock     *clock.FakeClock
	ctx       context.Context
	companyID snowflake.ID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	conn := testutil.OpenDB(t)
	require.NoError(t, migration.AutoMigrate(conn))

	f := &fixture{
		repo:      repository.Provide(),
		users:     userrepo.Provide(),
		projects:  projectrepo.Provide(),
		db:        conn,
		node:      node,
		clock:     clock.NewFakeClock(time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)),
		companyID: node.Generate(),
	}
	f.ctx = companycontext.WithCompanyID(context.Background(), f.companyID)
	f.svc = New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       f.clock,
		Cfg:         config.Config{GeoLookupTimeout: 50 * time.Millisecond},
		Locker:      lock.NewLocal(),
		Repo:        f.repo,
		UserRepo:    f.users,
		ProjectRepo: f.projects,
	})
	return f
}

func (f *fixture) user(t *testing.T, rate int64) *userdomain.User {
	t.Helper()
	now := f.clock.Now()
	u := &userdomain.User{
		ID:         f.node.Generate(),
		CompanyID:  f.companyID,
		Name:       "Ryan",
		Role:       "Installer",
		AccessRole: userdomain.AccessRoleEmployee,
		HourlyRate: rate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.users.Insert(f.ctx, f.db, u))
	return u
}

func (f *fixture) project(t *testing.T) *projectdomain.Project {
	t.Helper()
	now := f.clock.Now()
	p := &projectdomain.Project{
		ID:        f.node.Generate(),
		CompanyID: f.companyID,
		Name:      "Site",
		Type:      projectdomain.TypeRenovation,
		Status:    projectdomain.StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.projects.Insert(f.ctx, f.db, p))
	return p
}

func (f *fixture) spend(t *testing.T, projectID snowflake.ID) int64 {
	t.Helper()
	p, err := f.projects.FindByID(f.ctx, f.db, f.companyID, projectID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.CurrentSpend
}

func (f *fixture) assertSingleOpenLog(t *testing.T, userID snowflake.ID, want int64) {
	t.Helper()
	n, err := f.repo.CountOpen(f.ctx, f.db, f.companyID, userID)
	require.NoError(t, err)
	assert.Equal(t, want, n)

	u, err := f.users.FindByID(f.ctx, f.db, f.companyID, userID)
	require.NoError(t, err)
	assert.True(t, u.ClockStateValid())
	assert.Equal(t, want == 1, u.IsClockedIn)
}

func TestClockInOutPostsCostOnce(t *testing.T) {
	f := setup(t)
	u := f.user(t, 2500)
	p := f.project(t)

	opened, err := f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String()})
	require.NoError(t, err)
	assert.True(t, opened.IsOpen())
	f.assertSingleOpenLog(t, u.ID, 1)

	f.clock.Advance(2 * time.Hour)
	closed, err := f.svc.ClockOut(f.ctx, timetrackingdomain.ClockOutRequest{UserID: u.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, opened.ID, closed.ID)
	assert.Equal(t, int64(7_200_000), *closed.DurationMs)
	assert.Equal(t, int64(5000), *closed.Cost)
	assert.Equal(t, int64(2500), *closed.HourlyRate)
	assert.Equal(t, int64(5000), f.spend(t, p.ID))
	f.assertSingleOpenLog(t, u.ID, 0)

	_, err = f.svc.ClockOut(f.ctx, timetrackingdomain.ClockOutRequest{UserID: u.ID.String()})
	assert.ErrorIs(t, err, timetrackingdomain.ErrInvalidTransition)
	assert.Equal(t, int64(5000), f.spend(t, p.ID))
}

func TestClockInPreconditions(t *testing.T) {
	f := setup(t)
	u := f.user(t, 2500)
	p := f.project(t)

	_, err := f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String()})
	assert.ErrorIs(t, err, timetrackingdomain.ErrInvalidTransition)

	_, err = f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: "777"})
	assert.ErrorIs(t, err, projectdomain.ErrNotFound)

	_, err = f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: "777", ProjectID: p.ID.String()})
	assert.ErrorIs(t, err, userdomain.ErrNotFound)

	_, err = f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String()})
	require.NoError(t, err)
	_, err = f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String()})
	assert.ErrorIs(t, err, timetrackingdomain.ErrInvalidTransition)
	f.assertSingleOpenLog(t, u.ID, 1)

	_, err = f.svc.ClockIn(context.Background(), timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String()})
	assert.ErrorIs(t, err, timetrackingdomain.ErrInvalidCompany)
}

func TestClockOutUsesRateAtClockOut(t *testing.T) {
	f := setup(t)
	u := f.user(t, 2500)
	p := f.project(t)

	_, err := f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String()})
	require.NoError(t, err)

	u.HourlyRate = 4000
	require.NoError(t, f.users.UpdateProfile(f.ctx, f.db, u))

	f.clock.Advance(90 * time.Minute)
	closed, err := f.svc.ClockOut(f.ctx, timetrackingdomain.ClockOutRequest{UserID: u.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), *closed.Cost)
	assert.Equal(t, int64(4000), *closed.HourlyRate)
}

func TestClockSkewClampsToZero(t *testing.T) {
	f := setup(t)
	u := f.user(t, 2500)
	p := f.project(t)

	_, err := f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String()})
	require.NoError(t, err)

	f.clock.Advance(-time.Hour)
	closed, err := f.svc.ClockOut(f.ctx, timetrackingdomain.ClockOutRequest{UserID: u.ID.String()})
	require.NoError(t, err)
	assert.True(t, closed.ClockSkewed)
	assert.Equal(t, int64(0), *closed.DurationMs)
	assert.Equal(t, int64(0), *closed.Cost)
	assert.Equal(t, int64(0), f.spend(t, p.ID))
}

func TestSwitchJob(t *testing.T) {
	f := setup(t)
	u := f.user(t, 2500)
	first := f.project(t)
	second := f.project(t)

	_, err := f.svc.SwitchJob(f.ctx, timetrackingdomain.SwitchJobRequest{UserID: u.ID.String(), NewProjectID: second.ID.String()})
	assert.ErrorIs(t, err, timetrackingdomain.ErrInvalidTransition)

	_, err = f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: first.ID.String()})
	require.NoError(t, err)

	_, err = f.svc.SwitchJob(f.ctx, timetrackingdomain.SwitchJobRequest{UserID: u.ID.String(), NewProjectID: first.ID.String()})
	assert.ErrorIs(t, err, timetrackingdomain.ErrSameProject)

	f.clock.Advance(time.Hour)
	res, err := f.svc.SwitchJob(f.ctx, timetrackingdomain.SwitchJobRequest{UserID: u.ID.String(), NewProjectID: second.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, first.ID, res.Closed.ProjectID)
	assert.Equal(t, int64(2500), *res.Closed.Cost)
	assert.Equal(t, second.ID, res.Opened.ProjectID)
	assert.True(t, res.Opened.IsOpen())
	assert.Equal(t, int64(2500), f.spend(t, first.ID))
	assert.Equal(t, int64(0), f.spend(t, second.ID))
	f.assertSingleOpenLog(t, u.ID, 1)

	current, err := f.users.FindByID(f.ctx, f.db, f.companyID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, *current.CurrentProjectID)
}

func TestSwitchJobToMissingProjectChangesNothing(t *testing.T) {
	f := setup(t)
	u := f.user(t, 2500)
	p := f.project(t)

	opened, err := f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String()})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	_, err = f.svc.SwitchJob(f.ctx, timetrackingdomain.SwitchJobRequest{UserID: u.ID.String(), NewProjectID: "777"})
	assert.ErrorIs(t, err, projectdomain.ErrNotFound)

	open, err := f.svc.OpenLog(f.ctx, u.ID.String())
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, opened.ID, open.ID)
	assert.Equal(t, int64(0), f.spend(t, p.ID))
	f.assertSingleOpenLog(t, u.ID, 1)
}

func TestLocationIsBestEffort(t *testing.T) {
	f := setup(t)
	u := f.user(t, 2500)
	p := f.project(t)

	failing := geo.LocatorFunc(func(ctx context.Context) (*geo.Location, error) {
		return nil, errors.New("permission denied")
	})
	opened, err := f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String(), Locator: failing})
	require.NoError(t, err)
	assert.Nil(t, opened.ClockInPosition())

	slow := geo.LocatorFunc(func(ctx context.Context) (*geo.Location, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	closed, err := f.svc.ClockOut(f.ctx, timetrackingdomain.ClockOutRequest{UserID: u.ID.String(), Locator: slow})
	require.NoError(t, err)
	assert.Nil(t, closed.ClockOutPosition())

	located, err := f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String(), Locator: geo.Fixed(40.7128, -74.006, 12)})
	require.NoError(t, err)
	require.NotNil(t, located.ClockInPosition())

	logs, err := f.svc.ListByUser(f.ctx, u.ID.String(), nil, nil)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	stored := logs[0].ClockInPosition()
	require.NotNil(t, stored)
	assert.InDelta(t, 40.7128, stored.Latitude, 1e-9)
}

func TestStorageRejectsSecondOpenLog(t *testing.T) {
	f := setup(t)
	u := f.user(t, 2500)
	p := f.project(t)

	_, err := f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String()})
	require.NoError(t, err)

	err = f.repo.Insert(f.ctx, f.db, &timetrackingdomain.TimeLog{
		ID:        f.node.Generate(),
		CompanyID: f.companyID,
		UserID:    u.ID,
		ProjectID: p.ID,
		ClockIn:   f.clock.Now(),
		CreatedAt: f.clock.Now(),
	})
	require.Error(t, err)
	assert.True(t, db.IsDuplicateKeyErr(err))
}

func TestConcurrentClockOutAppliesOnce(t *testing.T) {
	f := setup(t)
	u := f.user(t, 2500)
	p := f.project(t)

	_, err := f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String()})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)

	const workers = 6
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ClockOut(f.ctx, timetrackingdomain.ClockOutRequest{UserID: u.ID.String()})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, timetrackingdomain.ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(5000), f.spend(t, p.ID))
}

func TestListByProject(t *testing.T) {
	f := setup(t)
	u := f.user(t, 2500)
	p := f.project(t)

	for i := 0; i < 2; i++ {
		_, err := f.svc.ClockIn(f.ctx, timetrackingdomain.ClockInRequest{UserID: u.ID.String(), ProjectID: p.ID.String()})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
		_, err = f.svc.ClockOut(f.ctx, timetrackingdomain.ClockOutRequest{UserID: u.ID.String()})
		require.NoError(t, err)
	}

	logs, err := f.svc.ListByProject(f.ctx, p.ID.String())
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].ClockIn.After(logs[1].ClockIn))
}
