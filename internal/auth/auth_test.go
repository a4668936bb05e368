package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/db/models"
)

// countingService records how often groups are fetched from the provider.
type countingService struct {
	*auth.MemoryService

	groupCalls  map[string]int
	groupsCalls int
}

func newCountingService() *countingService {
	return &countingService{MemoryService: auth.NewMemoryService(), groupCalls: make(map[string]int)}
}

func (s *countingService) Group(name string) (*models.Group, bool) {
	s.groupCalls[name]++
	return s.MemoryService.Group(name)
}

func (s *countingService) Groups() map[string]*models.Group {
	s.groupsCalls++
	return s.MemoryService.Groups()
}

// flatService hides the subgroup capability of the memory provider.
type flatService struct {
	auth.Service
}

func seeded(t *testing.T) *auth.MemoryService {
	t.Helper()

	svc := auth.NewMemoryService()
	for _, name := range []string{"alice", "bob", "carol"} {
		require.True(t, svc.AddUser(newUser(name), name+"-pw"))
	}

	require.True(t, svc.AddGroup(newGroup("admins", "alice")))
	require.True(t, svc.AddGroup(newGroup("staff", "bob")))

	return svc
}

func TestCapabilities(t *testing.T) {
	a := auth.New(auth.NewMemoryService(), auth.Options{})
	assert.True(t, a.SupportsSubgroups())
	assert.False(t, a.SupportsSSO())

	flat := auth.New(flatService{auth.NewMemoryService()}, auth.Options{})
	assert.False(t, flat.SupportsSubgroups())
	assert.False(t, flat.AddSubgroupToGroup("a", "b"))
	assert.False(t, flat.RemoveSubgroupFromGroup("a", "b"))
}

func TestLoginLogout(t *testing.T) {
	a := auth.New(seeded(t), auth.Options{AdminGroup: "admins"})

	assert.False(t, a.IsAuthenticated())
	assert.Empty(t, a.CurrentUser())

	assert.False(t, a.Login("alice", "wrong"))
	assert.False(t, a.IsAuthenticated())

	require.True(t, a.Login("alice", "alice-pw"))
	assert.True(t, a.IsAuthenticated())
	assert.Equal(t, "alice", a.CurrentUser())
	assert.True(t, a.IsAdmin())

	a.Logout()
	assert.False(t, a.IsAuthenticated())
	assert.False(t, a.IsAdmin())

	require.True(t, a.Login("bob", "bob-pw"))
	assert.False(t, a.IsAdmin())
}

func TestIsAdminWithoutAdminGroup(t *testing.T) {
	a := auth.New(seeded(t), auth.Options{})
	require.True(t, a.Login("alice", "alice-pw"))
	assert.False(t, a.IsAdmin())
}

func TestGroupMembershipCycle(t *testing.T) {
	svc := newCountingService()
	require.True(t, svc.AddUser(newUser("u1"), "pw"))
	require.True(t, svc.AddUser(newUser("u2"), "pw"))
	require.True(t, svc.AddGroup(newGroup("A", "u1")))
	require.True(t, svc.AddGroup(newGroup("B", "u2")))
	require.True(t, svc.AddSubgroupToGroup("B", "A"))
	require.True(t, svc.AddSubgroupToGroup("A", "B"))

	a := auth.New(svc, auth.Options{})

	assert.Equal(t, []string{"u1", "u2"}, a.GroupMembership("A"))
	assert.Equal(t, 1, svc.groupCalls["A"])
	assert.Equal(t, 1, svc.groupCalls["B"])

	assert.Equal(t, []string{"u1", "u2"}, a.GroupMembership("B"))
	assert.Equal(t, 1, svc.groupCalls["A"], "groups are cached")
	assert.Equal(t, 1, svc.groupCalls["B"])

	assert.Empty(t, a.GroupMembership("missing"))
}

func TestGroupMembershipWithoutSubgroups(t *testing.T) {
	svc := seeded(t)
	require.True(t, svc.AddSubgroupToGroup("staff", "admins"))

	a := auth.New(flatService{svc}, auth.Options{})
	assert.Equal(t, []string{"alice"}, a.GroupMembership("admins"))

	groups := a.Groups(true)
	assert.Equal(t, []string{"alice"}, groups["admins"].Users())
}

func TestGroupsFlatten(t *testing.T) {
	svc := newCountingService()
	require.True(t, svc.AddUser(newUser("alice"), "pw"))
	require.True(t, svc.AddUser(newUser("bob"), "pw"))
	require.True(t, svc.AddGroup(newGroup("admins", "alice")))
	require.True(t, svc.AddGroup(newGroup("staff", "bob")))
	require.True(t, svc.AddSubgroupToGroup("staff", "admins"))

	a := auth.New(svc, auth.Options{})

	raw := a.Groups(false)
	assert.Equal(t, []string{"alice"}, raw["admins"].Users())

	flat := a.Groups(true)
	assert.Equal(t, []string{"alice", "bob"}, flat["admins"].Users())
	assert.Equal(t, []string{"bob"}, flat["staff"].Users())

	a.Groups(true)
	a.Groups(false)
	assert.Equal(t, 1, svc.groupsCalls, "both forms come from one provider call")

	flat["admins"].SetUsers(nil)
	assert.Len(t, a.Groups(true)["admins"].Users(), 2, "results are copies")
}

func TestUserGroupsFollowSubgroups(t *testing.T) {
	svc := seeded(t)
	require.True(t, svc.AddSubgroupToGroup("staff", "admins"))

	a := auth.New(svc, auth.Options{AdminGroup: "admins"})

	assert.Equal(t, map[string]string{"admins": "admins", "staff": "staff"}, a.UserGroups("bob"))
	assert.Equal(t, map[string]string{"admins": "admins"}, a.UserGroups("alice"))
	assert.Empty(t, a.UserGroups("carol"))

	require.True(t, a.Login("bob", "bob-pw"))
	assert.True(t, a.IsAdmin())
}

func TestUserCache(t *testing.T) {
	a := auth.New(seeded(t), auth.Options{})

	u, ok := a.User("alice")
	require.True(t, ok)
	u.SetEmail("alice@example.com")

	cached, _ := a.User("alice")
	assert.Empty(t, cached.Email(), "results are copies")

	_, ok = a.User("nobody")
	assert.False(t, ok)

	assert.Len(t, a.Users(), 3)

	dave := newUser("dave")
	require.True(t, a.AddUser(dave, "pw"))
	assert.Len(t, a.Users(), 4, "added users join the loaded list")
	assert.True(t, a.UserExists("dave"))

	dave.SetEmail("dave@example.com")
	require.True(t, a.UpdateUser(dave))

	got, ok := a.User("dave")
	require.True(t, ok)
	assert.Equal(t, "dave@example.com", got.Email())

	require.True(t, a.DeleteUser("dave"))
	_, ok = a.User("dave")
	assert.False(t, ok)
	assert.Len(t, a.Users(), 3)

	assert.False(t, a.AddUser(newUser("alice"), "pw"))
	assert.False(t, a.AddUser(nil, "pw"))
}

func TestDeleteCurrentUserLogsOut(t *testing.T) {
	a := auth.New(seeded(t), auth.Options{})
	require.True(t, a.Login("carol", "carol-pw"))
	require.True(t, a.DeleteUser("carol"))
	assert.False(t, a.IsAuthenticated())
}

func TestMembershipInvalidation(t *testing.T) {
	a := auth.New(seeded(t), auth.Options{})

	assert.Equal(t, map[string]string{"staff": "staff"}, a.UserGroups("bob"))
	assert.Equal(t, []string{"bob"}, a.GroupMembership("staff"))

	require.True(t, a.AddUserToGroup("bob", "admins"))
	assert.Equal(t, map[string]string{"admins": "admins", "staff": "staff"}, a.UserGroups("bob"))
	assert.Equal(t, []string{"alice", "bob"}, a.GroupMembership("admins"))

	require.True(t, a.RemoveUserFromGroup("bob", "staff"))
	assert.Equal(t, map[string]string{"admins": "admins"}, a.UserGroups("bob"))
	assert.Empty(t, a.GroupMembership("staff"))
	assert.Empty(t, a.Groups(false)["staff"].Users())

	assert.False(t, a.RemoveUserFromGroup("bob", "staff"))
}

func TestSubgroupInvalidation(t *testing.T) {
	a := auth.New(seeded(t), auth.Options{})

	assert.Equal(t, map[string]string{"staff": "staff"}, a.UserGroups("bob"))
	assert.Equal(t, []string{"alice"}, a.Groups(true)["admins"].Users())

	require.True(t, a.AddSubgroupToGroup("staff", "admins"))
	assert.Equal(t, map[string]string{"admins": "admins", "staff": "staff"}, a.UserGroups("bob"))
	assert.Equal(t, []string{"alice", "bob"}, a.Groups(true)["admins"].Users())

	require.True(t, a.RemoveSubgroupFromGroup("staff", "admins"))
	assert.Equal(t, map[string]string{"staff": "staff"}, a.UserGroups("bob"))
}

func TestGroupInvalidation(t *testing.T) {
	a := auth.New(seeded(t), auth.Options{})

	assert.Len(t, a.GroupNames(), 2)
	assert.Len(t, a.Groups(false), 2)
	assert.Empty(t, a.UserGroups("carol"))

	require.True(t, a.AddGroup(newGroup("ops", "carol")))
	assert.Len(t, a.GroupNames(), 3)
	assert.Len(t, a.Groups(false), 3)
	assert.True(t, a.GroupExists("ops"))
	assert.Equal(t, map[string]string{"ops": "ops"}, a.UserGroups("carol"))

	require.True(t, a.DeleteGroup("ops"))
	assert.Len(t, a.GroupNames(), 2)
	assert.False(t, a.GroupExists("ops"))
	assert.Empty(t, a.UserGroups("carol"))

	_, ok := a.Group("ops")
	assert.False(t, ok)

	assert.False(t, a.DeleteGroup("ops"))
	assert.False(t, a.AddGroup(newGroup("admins")))
}

func TestPasswordHashing(t *testing.T) {
	h, err := auth.NewHasher(auth.HashHMACSHA512, "key", 10)
	require.NoError(t, err)

	a := auth.New(auth.NewMemoryService(), auth.Options{Hasher: h})

	stored, err := a.HashPassword("pw")
	require.NoError(t, err)
	assert.True(t, a.VerifyPassword("pw", stored))
	assert.False(t, a.VerifyPassword("other", stored))

	def := auth.New(auth.NewMemoryService(), auth.Options{})
	stored, err = def.HashPassword("pw")
	require.NoError(t, err)
	assert.True(t, def.VerifyPassword("pw", stored))
}

func TestSnapshotRestore(t *testing.T) {
	svc := seeded(t)
	require.True(t, svc.AddSubgroupToGroup("staff", "admins"))

	a := auth.New(svc, auth.Options{AdminGroup: "admins"})
	require.True(t, a.Login("bob", "bob-pw"))
	a.UserGroups("bob")
	a.Groups(true)
	a.Users()
	a.GroupNames()
	a.User("alice")

	data, err := a.Snapshot()
	require.NoError(t, err)

	counting := newCountingService()
	counting.MemoryService = svc

	b := auth.New(counting, auth.Options{AdminGroup: "admins"})
	require.NoError(t, b.Restore(data))

	assert.Equal(t, "bob", b.CurrentUser())
	assert.True(t, b.IsAdmin())
	assert.Equal(t, []string{"alice", "bob"}, b.Groups(true)["admins"].Users())
	assert.Equal(t, []string{"alice"}, b.Groups(false)["admins"].Users())
	assert.Zero(t, counting.groupsCalls, "restored caches are used")
	assert.Len(t, b.Users(), 3)
	assert.Len(t, b.GroupNames(), 2)

	u, ok := b.User("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", u.DisplayName())
}

func TestRestoreWithinDropsStaleMembership(t *testing.T) {
	svc := seeded(t)

	a := auth.New(svc, auth.Options{AdminGroup: "admins"})
	require.True(t, a.Login("alice", "alice-pw"))
	require.True(t, a.IsAdmin())
	a.User("alice")

	data, err := a.Snapshot()
	require.NoError(t, err)

	require.True(t, svc.RemoveUserFromGroup("alice", "admins"))

	fresh := auth.New(svc, auth.Options{AdminGroup: "admins"})
	require.NoError(t, fresh.RestoreWithin(data, time.Hour))
	assert.True(t, fresh.IsAdmin(), "membership younger than the ttl is kept")

	stale := auth.New(svc, auth.Options{AdminGroup: "admins"})
	require.NoError(t, stale.RestoreWithin(data, 0))
	assert.Equal(t, "alice", stale.CurrentUser())
	assert.False(t, stale.IsAdmin(), "membership reloads from the provider")

	u, ok := stale.User("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", u.Username())

	require.ErrorIs(t, stale.RestoreWithin([]byte(`{"version":99}`), time.Hour), auth.ErrSnapshotVersion)
}

func TestRestoreEmptyCaches(t *testing.T) {
	a := auth.New(seeded(t), auth.Options{})

	data, err := a.Snapshot()
	require.NoError(t, err)

	b := auth.New(seeded(t), auth.Options{})
	require.NoError(t, b.Restore(data))
	assert.False(t, b.IsAuthenticated())
	assert.Len(t, b.Users(), 3, "unloaded caches load from the provider")
}

func TestRestoreErrors(t *testing.T) {
	a := auth.New(seeded(t), auth.Options{})
	require.True(t, a.Login("alice", "alice-pw"))

	require.ErrorIs(t, a.Restore([]byte(`{"version":99}`)), auth.ErrSnapshotVersion)
	require.Error(t, a.Restore([]byte(`not json`)))
	assert.Equal(t, "alice", a.CurrentUser(), "failed restores leave state untouched")
}
