package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/constructtrack/internal/migration"
	"github.com/smallbiznis/constructtrack/internal/testutil"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	userrepo "github.com/smallbiznis/constructtrack/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	users     userdomain.Repository
	svc       Service
	companyID snowflake.ID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	conn := testutil.OpenDB(t)
	require.NoError(t, migration.AutoMigrate(conn))

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	users := userrepo.Provide()
	return &fixture{
		db:    conn,
		node:  node,
		users: users,
		svc: NewService(Params{
			DB:       conn,
			Log:      zap.NewNop(),
			Enforcer: enforcer,
			UserRepo: users,
		}),
		companyID: node.Generate(),
	}
}

func (f *fixture) actor(t *testing.T, accessRole string) string {
	t.Helper()
	now := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	user := &userdomain.User{
		ID:         f.node.Generate(),
		CompanyID:  f.companyID,
		Name:       "crew " + accessRole,
		Role:       "Installer",
		AccessRole: accessRole,
		HourlyRate: 2500,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.users.Insert(context.Background(), f.db, user))
	return "user:" + user.ID.String()
}

func TestAuthorizeByAccessRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	company := f.companyID.String()

	employee := f.actor(t, userdomain.AccessRoleEmployee)
	manager := f.actor(t, userdomain.AccessRoleManager)
	admin := f.actor(t, userdomain.AccessRoleAdmin)

	cases := []struct {
		actor  string
		object string
		action string
		err    error
	}{
		{employee, ObjectTimeLog, ActionTimeClock, nil},
		{employee, ObjectMaterialLog, ActionMaterialLog, nil},
		{employee, ObjectInventory, ActionInventoryManage, ErrForbidden},
		{employee, ObjectInvoice, ActionInvoiceGenerate, ErrForbidden},
		{manager, ObjectTimeLog, ActionTimeClock, nil},
		{manager, ObjectInventory, ActionInventoryManage, nil},
		{manager, ObjectInvoice, ActionInvoiceGenerate, nil},
		{manager, ObjectSnapshot, ActionSnapshotImport, ErrForbidden},
		{admin, ObjectSnapshot, ActionSnapshotImport, nil},
		{admin, ObjectAuditLog, ActionAuditLogView, nil},
		{"system", ObjectInvoice, ActionInvoiceGenerate, nil},
	}
	for _, tc := range cases {
		err := f.svc.Authorize(ctx, tc.actor, company, tc.object, tc.action)
		if tc.err == nil {
			assert.NoError(t, err, "%s %s", tc.object, tc.action)
		} else {
			assert.ErrorIs(t, err, tc.err, "%s %s", tc.object, tc.action)
		}
	}
}

func TestAuthorizeRejectsUnknownActors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	company := f.companyID.String()

	err := f.svc.Authorize(ctx, "user:"+f.node.Generate().String(), company, ObjectTimeLog, ActionTimeClock)
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.svc.Authorize(ctx, "api_key:1", company, ObjectTimeLog, ActionTimeClock)
	assert.ErrorIs(t, err, ErrInvalidActor)

	err = f.svc.Authorize(ctx, "user:abc", company, ObjectTimeLog, ActionTimeClock)
	assert.ErrorIs(t, err, ErrInvalidActor)

	err = f.svc.Authorize(ctx, "", company, ObjectTimeLog, ActionTimeClock)
	assert.ErrorIs(t, err, ErrInvalidActor)

	err = f.svc.Authorize(ctx, "system", "", ObjectTimeLog, ActionTimeClock)
	assert.ErrorIs(t, err, ErrInvalidCompany)

	err = f.svc.Authorize(ctx, "system", company, "", ActionTimeClock)
	assert.ErrorIs(t, err, ErrInvalidObject)

	err = f.svc.Authorize(ctx, "system", company, ObjectTimeLog, " ")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestAuthorizeIsScopedToCompany(t *testing.T) {
	f := setup(t)
	employee := f.actor(t, userdomain.AccessRoleEmployee)
	other := f.node.Generate().String()

	err := f.svc.Authorize(context.Background(), employee, other, ObjectTimeLog, ActionTimeClock)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	company := f.companyID.String()
	manager := f.actor(t, userdomain.AccessRoleManager)

	require.NoError(t, f.svc.Authorize(ctx, manager, company, ObjectInventory, ActionInventoryManage))

	userID, err := snowflake.ParseString(manager[len("user:"):])
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(`UPDATE users SET access_role = ? WHERE id = ?`, userdomain.AccessRoleEmployee, userID).Error)

	err = f.svc.Authorize(ctx, manager, company, ObjectInventory, ActionInventoryManage)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSeedPoliciesIsIdempotent(t *testing.T) {
	conn := testutil.OpenDB(t)
	require.NoError(t, migration.AutoMigrate(conn))

	first, err := NewEnforcer(conn)
	require.NoError(t, err)
	before, err := first.GetPolicy()
	require.NoError(t, err)

	second, err := NewEnforcer(conn)
	require.NoError(t, err)
	after, err := second.GetPolicy()
	require.NoError(t, err)

	assert.Len(t, after, len(before))
}
