package library

import (
	"strconv"
)

// Exact header lines of the three data files.
const (
	UsersHeader        = "username|password|role"
	BooksHeader        = "id|title|author|genre|releasedDate|filename"
	ReservationsHeader = "id|bookId|username|reservationDate|status|startDate|endDate"
)

// UserCodec maps username|password|role.
func UserCodec() Codec[User] {
	return Codec[User]{
		Decode: func(f []string) (User, error) {
			role, err := ParseRole(f[2])
			if err != nil {
				return User{}, err
			}
			return User{Username: f[0], Password: f[1], Role: role}, nil
		},
		Encode: func(u User) []string {
			return []string{u.Username, u.Password, string(u.Role)}
		},
		Key: func(u User) string { return u.Username },
	}
}

// BookCodec maps id|title|author|genre|releasedDate|filename.
func BookCodec() Codec[Book] {
	return Codec[Book]{
		Decode: func(f []string) (Book, error) {
			id, err := parseID(f[0])
			if err != nil {
				return Book{}, err
			}
			released, err := ParseDate(f[4])
			if err != nil {
				return Book{}, err
			}
			return Book{
				ID:           id,
				Title:        f[1],
				Author:       f[2],
				Genre:        f[3],
				ReleasedDate: released,
				Filename:     f[5],
			}, nil
		},
		Encode: func(b Book) []string {
			return []string{
				strconv.Itoa(b.ID),
				b.Title,
				b.Author,
				b.Genre,
				FormatDate(b.ReleasedDate),
				b.Filename,
			}
		},
		Key: func(b Book) string { return strconv.Itoa(b.ID) },
	}
}

// ReservationCodec maps id|bookId|username|reservationDate|status|startDate|endDate.
// Decoded reservations carry a Missing book reference until resolved; the
// bookId column is written from BookID so a dangling reference survives a rewrite.
func ReservationCodec() Codec[Reservation] {
	return Codec[Reservation]{
		Decode: func(f []string) (Reservation, error) {
			id, err := parseID(f[0])
			if err != nil {
				return Reservation{}, err
			}
			bookID, err := parseID(f[1])
			if err != nil {
				return Reservation{}, err
			}
			reserved, err := ParseDateTime(f[3])
			if err != nil {
				return Reservation{}, err
			}
			status, err := ParseReservationStatus(f[4])
			if err != nil {
				return Reservation{}, err
			}
			start, err := ParseDate(f[5])
			if err != nil {
				return Reservation{}, err
			}
			end, err := ParseDate(f[6])
			if err != nil {
				return Reservation{}, err
			}
			return Reservation{
				ID:              id,
				BookID:          bookID,
				Book:            Missing(),
				Username:        f[2],
				ReservationDate: reserved,
				Status:          status,
				StartDate:       start,
				EndDate:         end,
			}, nil
		},
		Encode: func(r Reservation) []string {
			return []string{
				strconv.Itoa(r.ID),
				strconv.Itoa(r.BookID),
				r.Username,
				FormatDateTime(r.ReservationDate),
				string(r.Status),
				FormatDate(r.StartDate),
				FormatDate(r.EndDate),
			}
		},
		Key: func(r Reservation) string { return strconv.Itoa(r.ID) },
	}
}

// resolveBooks returns a load hook that attaches each reservation's book,
// reading the book file once per load.
func resolveBooks(books *Store[Book]) func([]Reservation) {
	return func(rs []Reservation) {
		if len(rs) == 0 {
			return
		}
		all, err := books.ReadAll()
		if err != nil {
			// Already logged by the book store; every reference stays Missing.
			return
		}
		byID := make(map[int]Book, len(all))
		for _, b := range all {
			byID[b.ID] = b
		}
		for i := range rs {
			if b, ok := byID[rs[i].BookID]; ok {
				rs[i].Book = Present(b)
			} else {
				rs[i].Book = Missing()
			}
		}
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, Validationf("invalid id %q", s)
	}
	return id, nil
}
