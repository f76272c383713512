package library

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.January, 5, 10, 15, 42, 0, time.Local)

type testLibrary struct {
	*LibraryManager
	now *time.Time
}

// newManager opens a library in a temp dir with a clock the test can move.
func newManager(t *testing.T) *testLibrary {
	t.Helper()
	dir := t.TempDir()
	now := fixedNow
	mgr, err := NewLibraryManager(filepath.Join(dir, "data"), filepath.Join(dir, "books"),
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return &testLibrary{LibraryManager: mgr, now: &now}
}

func (l *testLibrary) setToday(d time.Time) {
	*l.now = time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, time.Local)
}

// writeContent creates books/<name>.txt with n numbered lines.
func (l *testLibrary) writeContent(t *testing.T, name string, n int) {
	t.Helper()
	var b []byte
	for i := 1; i <= n; i++ {
		b = append(b, []byte("line "+strconv.Itoa(i)+"\n")...)
	}
	require.NoError(t, os.WriteFile(filepath.Join(l.BooksDir(), name+".txt"), b, 0o644))
}

func (l *testLibrary) addBook(t *testing.T, title, filename string) Book {
	t.Helper()
	l.writeContent(t, filename, 3)
	b, err := l.Books.AddBook(admin, NewBook{
		Title: title, Author: "Author", Genre: "Genre",
		ReleasedDate: Date(2000, time.January, 1), Filename: filename,
	})
	require.NoError(t, err)
	return b
}

func (l *testLibrary) readFile(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(l.DataDir(), name))
	require.NoError(t, err)
	return string(b)
}

var (
	admin = Actor{Username: "root", Admin: true}
	alice = Actor{Username: "alice"}
	bob   = Actor{Username: "bob"}
)

func TestNewLibraryManagerCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewLibraryManager(filepath.Join(dir, "d"), filepath.Join(dir, "b"))
	require.NoError(t, err)
	assert.DirExists(t, mgr.DataDir())
	assert.DirExists(t, mgr.BooksDir())
}

func TestSignupThenLogin(t *testing.T) {
	lib := newManager(t)

	_, err := lib.Users.Signup("alice", "pw", "pw")
	require.NoError(t, err)

	u, err := lib.Users.Login("alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, RoleMember, u.Role)

	_, err = lib.Users.Login("alice", "bad")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, "username|password|role\nalice|pw|MEMBER\n", lib.readFile(t, UsersFile))
}

func TestAdminAddsBookMemberReserves(t *testing.T) {
	lib := newManager(t)
	lib.writeContent(t, "dune", 5)

	book, err := lib.Books.AddBook(admin, NewBook{
		Title: "Dune", Author: "Herbert", Genre: "SciFi",
		ReleasedDate: Date(1965, time.August, 1), Filename: "dune",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, book.ID)

	r, err := lib.Reservations.Create(bob, book.ID, Date(2025, time.January, 10), Date(2025, time.January, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, r.ID)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, "2025-01-05T10:15", FormatDateTime(r.ReservationDate))
	assert.Equal(t, "Dune", r.Book.Title())
}

func TestReservationStateFlow(t *testing.T) {
	lib := newManager(t)
	book := lib.addBook(t, "Dune", "dune")
	r, err := lib.Reservations.Create(bob, book.ID, Date(2025, time.January, 10), Date(2025, time.January, 20))
	require.NoError(t, err)

	_, err = lib.Reservations.UpdateStatus(admin, r.ID, StatusApproved)
	require.NoError(t, err)

	_, err = lib.Reservations.UpdateStartDate(bob, r.ID, Date(2025, time.January, 12))
	assert.ErrorIs(t, err, ErrConflict)

	lib.setToday(Date(2025, time.January, 15))
	returned, err := lib.Reservations.UpdateStatus(bob, r.ID, StatusReturned)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, returned.Status)
	assert.Equal(t, "2025-01-15", FormatDate(returned.EndDate))

	stored, err := lib.Reservations.Get(admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, returned.EndDate, stored.EndDate)
	assert.Equal(t, "2025-01-10", FormatDate(stored.StartDate))
}

func TestReturnBeforeStartMovesStartToo(t *testing.T) {
	lib := newManager(t)
	book := lib.addBook(t, "Dune", "dune")
	r, err := lib.Reservations.Create(bob, book.ID, Date(2025, time.January, 10), Date(2025, time.January, 20))
	require.NoError(t, err)
	_, err = lib.Reservations.UpdateStatus(admin, r.ID, StatusApproved)
	require.NoError(t, err)

	returned, err := lib.Reservations.UpdateStatus(bob, r.ID, StatusReturned)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-05", FormatDate(returned.StartDate))
	assert.Equal(t, "2025-01-05", FormatDate(returned.EndDate))
}

func TestDeleteUserPermissionGating(t *testing.T) {
	lib := newManager(t)
	_, err := lib.Users.Signup("alice", "pw", "pw")
	require.NoError(t, err)
	_, err = lib.Users.Signup("bob", "pw", "pw")
	require.NoError(t, err)
	before := lib.readFile(t, UsersFile)

	err = lib.Users.DeleteUser(bob, "alice")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, before, lib.readFile(t, UsersFile))

	require.NoError(t, lib.Users.DeleteUser(Actor{Username: "bob", Admin: true}, "alice"))
	_, err = lib.Users.FindByUsername("alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookPagination(t *testing.T) {
	lib := newManager(t)
	for i := 1; i <= 12; i++ {
		lib.addBook(t, "Book "+strconv.Itoa(i), "book"+strconv.Itoa(i))
	}

	page, err := lib.Books.ListBooks(BookFilter{}, ListOptions{SortField: "id", Ascending: true, Page: 2, PageSize: 5})
	require.NoError(t, err)
	ids := make([]int, 0, len(page.Items))
	for _, b := range page.Items {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []int{6, 7, 8, 9, 10}, ids)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 3, page.TotalPages)
}

func TestDanglingBookReference(t *testing.T) {
	lib := newManager(t)
	for i := 1; i <= 7; i++ {
		lib.addBook(t, "Book "+strconv.Itoa(i), "book"+strconv.Itoa(i))
	}
	other, err := lib.Reservations.Create(bob, 1, Date(2025, time.February, 1), Date(2025, time.February, 3))
	require.NoError(t, err)
	dangling, err := lib.Reservations.Create(bob, 7, Date(2025, time.February, 1), Date(2025, time.February, 3))
	require.NoError(t, err)

	require.NoError(t, lib.Books.DeleteBook(admin, 7))

	got, err := lib.Reservations.Get(bob, dangling.ID)
	require.NoError(t, err)
	_, ok := got.Book.Get()
	assert.False(t, ok)
	assert.Equal(t, "N/A", got.Book.Title())
	assert.Equal(t, 7, got.BookID)

	for _, asc := range []bool{true, false} {
		page, err := lib.Reservations.List(bob, ReservationFilter{}, ListOptions{SortField: "bookTitle", Ascending: asc, Page: 1, PageSize: 10})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, other.ID, page.Items[0].ID)
		assert.Equal(t, dangling.ID, page.Items[1].ID)
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	lib := newManager(t)
	var last int
	for i := 1; i <= 3; i++ {
		b := lib.addBook(t, "Book "+strconv.Itoa(i), "book"+strconv.Itoa(i))
		assert.Greater(t, b.ID, last)
		last = b.ID
	}
	require.NoError(t, lib.Books.DeleteBook(admin, last))

	b := lib.addBook(t, "Book 4", "book4")
	assert.Greater(t, b.ID, last)
}

func TestReadBookForRequiresCurrentReservation(t *testing.T) {
	lib := newManager(t)
	book := lib.addBook(t, "Dune", "dune")
	lib.writeContent(t, "dune", 25)

	_, err := lib.ReadBookFor(bob, book.ID, 1)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	lines, err := lib.ReadBookFor(admin, book.ID, 2)
	require.NoError(t, err)
	assert.Len(t, lines, 5)

	r, err := lib.Reservations.Create(bob, book.ID, Date(2025, time.January, 5), Date(2025, time.January, 9))
	require.NoError(t, err)
	_, err = lib.Reservations.UpdateStatus(admin, r.ID, StatusApproved)
	require.NoError(t, err)

	lines, err = lib.ReadBookFor(bob, book.ID, 1)
	require.NoError(t, err)
	assert.Len(t, lines, PageSize)
	assert.Equal(t, "line 1", lines[0])
}

func TestDumpReadsEveryFile(t *testing.T) {
	lib := newManager(t)
	_, err := lib.Users.Signup("bob", "pw", "pw")
	require.NoError(t, err)
	book := lib.addBook(t, "Dune", "dune")
	_, err = lib.Reservations.Create(bob, book.ID, Date(2025, time.January, 6), Date(2025, time.January, 7))
	require.NoError(t, err)

	d, err := lib.Dump()
	require.NoError(t, err)
	assert.Len(t, d.Users, 1)
	assert.Len(t, d.Books, 1)
	assert.Len(t, d.Reservations, 1)
}
