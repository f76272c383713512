package library

import (
	"strings"
	"time"
)

// Role is the authorization level of a user. Stored by its uppercase name.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	}
	return "", Validationf("invalid role %q", s)
}

// ReservationStatus is a state of the reservation lifecycle.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusApproved  ReservationStatus = "APPROVED"
	StatusDenied    ReservationStatus = "DENIED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusActive    ReservationStatus = "ACTIVE"
	StatusExpired   ReservationStatus = "EXPIRED"
	StatusReturned  ReservationStatus = "RETURNED"
)

var allStatuses = []ReservationStatus{
	StatusPending, StatusApproved, StatusDenied, StatusCancelled,
	StatusActive, StatusExpired, StatusReturned,
}

// ParseReservationStatus accepts a status name in any case.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	want := ReservationStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range allStatuses {
		if st == want {
			return st, nil
		}
	}
	return "", Validationf("invalid reservation status %q", s)
}

// Terminal reports whether no further transition is permitted from s.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case StatusDenied, StatusCancelled, StatusReturned, StatusExpired:
		return true
	}
	return false
}

// User is a registered account. Username is unique ignoring case.
type User struct {
	Username string `json:"username"`
	Password string `json:"-"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether u holds the ADMIN role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Book is catalogue metadata. The text itself lives in books/<Filename>.txt.
type Book struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Genre        string    `json:"genre"`
	ReleasedDate time.Time `json:"released_date"`
	Filename     string    `json:"filename"`
}

// BookRef is the book a reservation points at. The book may have been deleted
// since the reservation was made, in which case Present is false.
type BookRef struct {
	book    Book
	present bool
}

// Present wraps a resolved book.
func Present(b Book) BookRef { return BookRef{book: b, present: true} }

// Missing is the reference to a book that no longer exists.
func Missing() BookRef { return BookRef{} }

// Get returns the book and whether it exists.
func (r BookRef) Get() (Book, bool) { return r.book, r.present }

// Exists reports whether the referenced book is still catalogued.
func (r BookRef) Exists() bool { return r.present }

// Title returns the book title, or "N/A" for a missing book.
func (r BookRef) Title() string {
	if !r.present {
		return "N/A"
	}
	return r.book.Title
}

// Reservation is a member's request to read a book between two dates.
type Reservation struct {
	ID              int               `json:"id"`
	BookID          int               `json:"book_id"`
	Book            BookRef           `json:"-"`
	Username        string            `json:"username"`
	ReservationDate time.Time         `json:"reservation_date"`
	Status          ReservationStatus `json:"status"`
	StartDate       time.Time         `json:"start_date"`
	EndDate         time.Time         `json:"end_date"`
}

// Actor is the user on whose behalf an operation runs.
type Actor struct {
	Username string
	Admin    bool
}

// ActorFor derives the actor for a logged-in user.
func ActorFor(u User) Actor {
	return Actor{Username: u.Username, Admin: u.IsAdmin()}
}

// Is reports whether the actor is the user named username, ignoring case.
func (a Actor) Is(username string) bool {
	return equalFold(a.Username, username)
}
