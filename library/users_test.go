package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T, lib *testLibrary, names ...string) {
	t.Helper()
	for _, n := range names {
		_, err := lib.Users.Signup(n, "pw", "pw")
		require.NoError(t, err)
	}
}

func TestSignupValidation(t *testing.T) {
	lib := newManager(t)
	seedUsers(t, lib, "alice")

	tests := []struct {
		name     string
		username string
		password string
		confirm  string
		kind     Kind
	}{
		{"blank username", "  ", "pw", "pw", KindValidation},
		{"blank password", "carol", "", "", KindValidation},
		{"mismatched confirm", "carol", "pw", "px", KindValidation},
		{"delimiter in username", "ca|rol", "pw", "pw", KindValidation},
		{"duplicate ignoring case", "ALICE", "pw", "pw", KindConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := lib.Users.Signup(tc.username, tc.password, tc.confirm)
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}

	all, err := lib.Users.All()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLoginIsCaseInsensitiveOnUsername(t *testing.T) {
	lib := newManager(t)
	seedUsers(t, lib, "Alice")

	u, err := lib.Users.Login("alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Username)

	_, err = lib.Users.Login("nobody", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	lib := newManager(t)

	_, err := lib.Users.CreateUser(alice, "carol", "pw", "pw", RoleAdmin)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	u, err := lib.Users.CreateUser(admin, "carol", "pw", "pw", RoleAdmin)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	_, err = lib.Users.CreateUser(admin, "Carol", "pw", "pw", RoleMember)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = lib.Users.CreateUser(admin, "dave", "pw", "pw", Role("OWNER"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBootstrapCreatesAdmin(t *testing.T) {
	lib := newManager(t)
	u, err := lib.Users.Bootstrap("root", "secret", "secret")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.Equal(t, "username|password|role\nroot|secret|ADMIN\n", lib.readFile(t, UsersFile))
}

func TestUpdateUsername(t *testing.T) {
	lib := newManager(t)
	seedUsers(t, lib, "alice", "bob")

	_, err := lib.Users.UpdateUsername(bob, "alice", "alicia")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = lib.Users.UpdateUsername(alice, "alice", "BOB")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = lib.Users.UpdateUsername(alice, "alice", "alice")
	assert.ErrorIs(t, err, ErrConflict)

	u, err := lib.Users.UpdateUsername(alice, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Username)

	u, err = lib.Users.UpdateUsername(admin, "bob", "robert")
	require.NoError(t, err)
	assert.Equal(t, "robert", u.Username)
	_, err = lib.Users.FindByUsername("bob")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = lib.Users.UpdateUsername(admin, "ghost", "spirit")
	assert.ErrorIs(t, err, ErrNotFound)

	u, err = lib.Users.UpdateUsername(alice, "  Alice ", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestUpdatePassword(t *testing.T) {
	lib := newManager(t)
	seedUsers(t, lib, "alice")

	err := lib.Users.UpdatePassword(alice, "alice", "wrong", "new", "new")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = lib.Users.UpdatePassword(alice, "alice", "pw", "new", "other")
	assert.ErrorIs(t, err, ErrValidation)

	err = lib.Users.UpdatePassword(bob, "alice", "pw", "new", "new")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, lib.Users.UpdatePassword(alice, "alice", "pw", "new", "new"))
	_, err = lib.Users.Login("alice", "new")
	require.NoError(t, err)

	require.NoError(t, lib.Users.UpdatePassword(admin, "alice", "", "reset", "reset"))
	_, err = lib.Users.Login("alice", "reset")
	assert.NoError(t, err)
}

func TestUpdateRole(t *testing.T) {
	lib := newManager(t)
	seedUsers(t, lib, "alice")

	_, err := lib.Users.UpdateRole(alice, "alice", RoleAdmin)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = lib.Users.UpdateRole(admin, "alice", RoleMember)
	assert.ErrorIs(t, err, ErrConflict)

	u, err := lib.Users.UpdateRole(admin, "alice", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
}

func TestDeleteUserKeepsReservations(t *testing.T) {
	lib := newManager(t)
	seedUsers(t, lib, "bob")
	book := lib.addBook(t, "Dune", "dune")
	r, err := lib.Reservations.Create(bob, book.ID, fixedNow, fixedNow)
	require.NoError(t, err)

	require.NoError(t, lib.Users.DeleteUser(bob, "bob"))
	err = lib.Users.DeleteUser(bob, "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = lib.Reservations.Get(admin, r.ID)
	assert.NoError(t, err)
}

func TestListUsers(t *testing.T) {
	lib := newManager(t)
	seedUsers(t, lib, "carol", "alice", "Bob")
	_, err := lib.Users.UpdateRole(admin, "carol", RoleAdmin)
	require.NoError(t, err)

	_, err = lib.Users.ListUsers(alice, UserFilter{}, ListOptions{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	page, err := lib.Users.ListUsers(admin, UserFilter{}, ListOptions{SortField: "username", Ascending: true, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "Bob", "carol"}, usernames(page.Items))

	page, err = lib.Users.ListUsers(admin, UserFilter{Role: RoleMember}, ListOptions{SortField: "nonsense", Ascending: false, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "alice"}, usernames(page.Items))

	page, err = lib.Users.ListUsers(admin, UserFilter{Username: "O"}, ListOptions{SortField: "role", Ascending: true, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "Bob"}, usernames(page.Items))

	page, err = lib.Users.ListUsers(admin, UserFilter{Role: "admin"}, ListOptions{SortField: "username", Ascending: true, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, usernames(page.Items))

	_, err = lib.Users.ListUsers(admin, UserFilter{Role: "librarian"}, ListOptions{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, ErrValidation)
}

func usernames(us []User) []string {
	out := make([]string, 0, len(us))
	for _, u := range us {
		out = append(out, u.Username)
	}
	return out
}
