package library

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Data file names inside the data directory.
const (
	UsersFile        = "users.txt"
	BooksFile        = "books.txt"
	ReservationsFile = "reservations.txt"
)

// System is the actor used by installation and import tooling.
var System = Actor{Username: "system", Admin: true}

// LibraryManager wires the stores and services together once, keeping
// front-end code simple.
type LibraryManager struct {
	Users        *UserService
	Books        *BookService
	Reservations *ReservationService

	dataDir  string
	booksDir string
}

type managerOptions struct {
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures NewLibraryManager.
type Option func(*managerOptions)

// WithLogger sets the logger for store and service diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *managerOptions) { o.logger = l }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *managerOptions) { o.clock = now }
}

// NewLibraryManager opens the library kept in dataDir, with book content in
// booksDir. Both directories are created when missing.
func NewLibraryManager(dataDir, booksDir string, opts ...Option) (*LibraryManager, error) {
	o := managerOptions{logger: slog.New(slog.DiscardHandler), clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	for _, dir := range []string{dataDir, booksDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			o.logger.Error("create directory failed", "dir", dir, "error", err)
			return nil, IOError("create", dir, err)
		}
	}

	usersPath := filepath.Join(dataDir, UsersFile)
	booksPath := filepath.Join(dataDir, BooksFile)
	reservationsPath := filepath.Join(dataDir, ReservationsFile)

	users := NewStore(usersPath, UsersHeader, UserCodec(), o.logger)
	books := NewStore(booksPath, BooksHeader, BookCodec(), o.logger)
	reservations := NewStore(reservationsPath, ReservationsHeader, ReservationCodec(), o.logger,
		WithLoadHook(resolveBooks(books)))

	return &LibraryManager{
		Users:        NewUserService(users, o.logger.With("service", "users")),
		Books:        NewBookService(books, NewAllocator(booksPath), booksDir, o.logger.With("service", "books")),
		Reservations: NewReservationService(reservations, books, NewAllocator(reservationsPath), o.clock, o.logger.With("service", "reservations")),
		dataDir:      dataDir,
		booksDir:     booksDir,
	}, nil
}

// DataDir is the directory holding the three data files.
func (lm *LibraryManager) DataDir() string { return lm.dataDir }

// BooksDir is the directory holding book content files.
func (lm *LibraryManager) BooksDir() string { return lm.booksDir }

// Dump is the full contents of the three data files.
type Dump struct {
	Users        []User
	Books        []Book
	Reservations []Reservation
}

// Dump reads every record of every data file.
func (lm *LibraryManager) Dump() (Dump, error) {
	var (
		d   Dump
		err error
	)
	if d.Users, err = lm.Users.All(); err != nil {
		return Dump{}, err
	}
	if d.Books, err = lm.Books.All(); err != nil {
		return Dump{}, err
	}
	if d.Reservations, err = lm.Reservations.All(); err != nil {
		return Dump{}, err
	}
	return d, nil
}

// ReadBookFor pages through the content of bookID on behalf of actor, who
// needs a current reservation unless they are an admin.
func (lm *LibraryManager) ReadBookFor(actor Actor, bookID, page int) ([]string, error) {
	b, err := lm.Books.ViewBook(bookID)
	if err != nil {
		return []string{}, err
	}
	access, err := lm.Reservations.HasReadAccess(actor, bookID)
	if err != nil {
		return []string{}, err
	}
	return lm.Books.ReadBook(b.Filename, page, access)
}
