package library

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ReservationService runs the reservation lifecycle:
//
//	create            -> PENDING
//	admin  approve    PENDING -> APPROVED
//	admin  deny       PENDING -> DENIED
//	owner  cancel     PENDING -> CANCELLED
//	owner  return     APPROVED|ACTIVE -> RETURNED (end date becomes today)
//	system advance    APPROVED -> ACTIVE, APPROVED|ACTIVE -> EXPIRED
//
// Members only ever see their own reservations.
type ReservationService struct {
	store  *Store[Reservation]
	books  *Store[Book]
	ids    *Allocator
	now    func() time.Time
	logger *slog.Logger
}

// NewReservationService returns the reservation service; now is its clock.
func NewReservationService(store *Store[Reservation], books *Store[Book], ids *Allocator, now func() time.Time, logger *slog.Logger) *ReservationService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReservationService{store: store, books: books, ids: ids, now: now, logger: logger}
}

// ReservationFilter narrows List. Blank text, empty Status and zero dates
// match everything.
type ReservationFilter struct {
	ID        string
	Username  string
	BookTitle string
	Status    ReservationStatus
	StartFrom time.Time
	StartTo   time.Time
	EndFrom   time.Time
	EndTo     time.Time
}

var reservationSorter = NewSorter("id", map[string]Ordering[Reservation]{
	"id":       {Compare: func(a, b Reservation) int { return compareInt(a.ID, b.ID) }},
	"username": {Compare: func(a, b Reservation) int { return compareFold(a.Username, b.Username) }},
	"bookTitle": {
		Compare: func(a, b Reservation) int { return compareFold(a.Book.Title(), b.Book.Title()) },
		Missing: func(r Reservation) bool { return !r.Book.Exists() },
	},
	"status":          {Compare: func(a, b Reservation) int { return strings.Compare(string(a.Status), string(b.Status)) }},
	"reservationDate": {Compare: func(a, b Reservation) int { return compareTime(a.ReservationDate, b.ReservationDate) }},
	"startDate":       {Compare: func(a, b Reservation) int { return compareTime(a.StartDate, b.StartDate) }},
	"endDate":         {Compare: func(a, b Reservation) int { return compareTime(a.EndDate, b.EndDate) }},
})

// ReservationSortFields lists the names List accepts as a sort field.
func ReservationSortFields() []string { return reservationSorter.Fields() }

type transition struct{ from, to ReservationStatus }

var (
	adminTransitions = map[transition]bool{
		{StatusPending, StatusApproved}: true,
		{StatusPending, StatusDenied}:   true,
	}
	ownerTransitions = map[transition]bool{
		{StatusPending, StatusCancelled}: true,
		{StatusApproved, StatusReturned}: true,
		{StatusActive, StatusReturned}:   true,
	}
)

func (s *ReservationService) today() time.Time { return DateOf(s.now()) }

// ---------------------------------------------------------------------------
// Create and select
// ---------------------------------------------------------------------------

// Create files a PENDING reservation of bookID for the actor. Both dates are
// required and start may not follow end. A start date earlier than today is
// rejected with VALIDATION, since the reservation is made today.
func (s *ReservationService) Create(actor Actor, bookID int, start, end time.Time) (Reservation, error) {
	if start.IsZero() || end.IsZero() {
		return Reservation{}, Validationf("start and end dates are required")
	}
	start, end = DateOf(start), DateOf(end)
	if start.After(end) {
		return Reservation{}, Validationf("start date %s is after end date %s", FormatDate(start), FormatDate(end))
	}
	now := s.now().Truncate(time.Minute)
	if start.Before(DateOf(now)) {
		return Reservation{}, Validationf("start date %s is in the past", FormatDate(start))
	}
	book, ok, err := s.books.FindByKey(strconv.Itoa(bookID))
	if err != nil {
		return Reservation{}, err
	}
	if !ok {
		return Reservation{}, NotFoundf("book %d not found", bookID)
	}

	id, err := s.ids.Next()
	if err != nil {
		return Reservation{}, err
	}
	r := Reservation{
		ID:              id,
		BookID:          book.ID,
		Book:            Present(book),
		Username:        actor.Username,
		ReservationDate: now,
		Status:          StatusPending,
		StartDate:       start,
		EndDate:         end,
	}
	if err := s.store.Append(r); err != nil {
		return Reservation{}, err
	}
	s.logger.Debug("reservation created", "id", r.ID, "book", r.BookID, "username", r.Username)
	return r, nil
}

// Get returns reservation id. A member asking for someone else's reservation
// gets NOT_FOUND, exactly as for an unknown id.
func (s *ReservationService) Get(actor Actor, id int) (Reservation, error) {
	r, ok, err := s.store.FindByKey(strconv.Itoa(id))
	if err != nil {
		return Reservation{}, err
	}
	if !ok || !(actor.Admin || actor.Is(r.Username)) {
		return Reservation{}, NotFoundf("reservation %d not found", id)
	}
	return r, nil
}

// List filters, sorts and pages the reservations visible to actor.
func (s *ReservationService) List(actor Actor, filter ReservationFilter, opts ListOptions) (Page[Reservation], error) {
	all, err := s.store.ReadAll()
	if err != nil {
		return Page[Reservation]{Items: []Reservation{}}, err
	}
	filters := []func(Reservation) bool{
		func(r Reservation) bool { return actor.Admin || actor.Is(r.Username) },
		func(r Reservation) bool { return containsFold(strconv.Itoa(r.ID), filter.ID) },
		func(r Reservation) bool { return containsFold(r.Username, filter.Username) },
		func(r Reservation) bool { return containsFold(r.Book.Title(), filter.BookTitle) },
		func(r Reservation) bool { return inDateRange(r.StartDate, filter.StartFrom, filter.StartTo) },
		func(r Reservation) bool { return inDateRange(r.EndDate, filter.EndFrom, filter.EndTo) },
	}
	if filter.Status != "" {
		filters = append(filters, func(r Reservation) bool { return r.Status == filter.Status })
	}
	return FilterSortPaginate(all, filters, reservationSorter, opts), nil
}

// All returns every reservation unfiltered, for export tooling.
func (s *ReservationService) All() ([]Reservation, error) { return s.store.ReadAll() }

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// UpdateStatus applies one lifecycle transition. The reservation is left
// untouched when the transition is not permitted.
func (s *ReservationService) UpdateStatus(actor Actor, id int, to ReservationStatus) (Reservation, error) {
	to, err := ParseReservationStatus(string(to))
	if err != nil {
		return Reservation{}, err
	}
	r, err := s.Get(actor, id)
	if err != nil {
		return Reservation{}, err
	}

	t := transition{r.Status, to}
	switch {
	case actor.Admin && adminTransitions[t], actor.Is(r.Username) && ownerTransitions[t]:
		// permitted
	case adminTransitions[t] || ownerTransitions[t]:
		return Reservation{}, PermissionDeniedf("%s may not move reservation %d from %s to %s", actor.Username, id, r.Status, to)
	default:
		return Reservation{}, Conflictf("reservation %d cannot move from %s to %s", id, r.Status, to)
	}

	r.Status = to
	if to == StatusReturned {
		today := s.today()
		r.EndDate = today
		if today.Before(r.StartDate) {
			r.StartDate = today
		}
	}
	if err := s.save(r); err != nil {
		return Reservation{}, err
	}
	s.logger.Debug("reservation status changed", "id", id, "from", t.from, "to", to, "by", actor.Username)
	return r, nil
}

// UpdateStartDate moves the start of a PENDING reservation.
func (s *ReservationService) UpdateStartDate(actor Actor, id int, start time.Time) (Reservation, error) {
	if start.IsZero() {
		return Reservation{}, Validationf("start date is required")
	}
	start = DateOf(start)
	return s.updatePending(actor, id, func(r *Reservation) error {
		if start.Before(DateOf(r.ReservationDate)) {
			return Validationf("start date %s is before the reservation was made", FormatDate(start))
		}
		if start.After(r.EndDate) {
			return Validationf("start date %s is after end date %s", FormatDate(start), FormatDate(r.EndDate))
		}
		r.StartDate = start
		return nil
	})
}

// UpdateEndDate moves the end of a PENDING reservation.
func (s *ReservationService) UpdateEndDate(actor Actor, id int, end time.Time) (Reservation, error) {
	if end.IsZero() {
		return Reservation{}, Validationf("end date is required")
	}
	end = DateOf(end)
	return s.updatePending(actor, id, func(r *Reservation) error {
		if end.Before(r.StartDate) {
			return Validationf("end date %s is before start date %s", FormatDate(end), FormatDate(r.StartDate))
		}
		r.EndDate = end
		return nil
	})
}

func (s *ReservationService) updatePending(actor Actor, id int, apply func(*Reservation) error) (Reservation, error) {
	r, err := s.Get(actor, id)
	if err != nil {
		return Reservation{}, err
	}
	if r.Status != StatusPending {
		return Reservation{}, Conflictf("reservation %d is %s, dates can only change while PENDING", id, r.Status)
	}
	if err := apply(&r); err != nil {
		return Reservation{}, err
	}
	if err := s.save(r); err != nil {
		return Reservation{}, err
	}
	s.logger.Debug("reservation dates changed", "id", id,
		"start", FormatDate(r.StartDate), "end", FormatDate(r.EndDate))
	return r, nil
}

// Delete removes a reservation. Admin only.
func (s *ReservationService) Delete(actor Actor, id int) error {
	if err := adminOnly(actor, "delete reservations"); err != nil {
		return err
	}
	removed, err := s.store.DeleteByKey(strconv.Itoa(id))
	if err != nil {
		return err
	}
	if !removed {
		return NotFoundf("reservation %d not found", id)
	}
	s.logger.Debug("reservation deleted", "id", id, "by", actor.Username)
	return nil
}

func (s *ReservationService) save(r Reservation) error {
	ok, err := s.store.UpdateByKey(r)
	if err != nil {
		return err
	}
	if !ok {
		return NotFoundf("reservation %d not found", r.ID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Access and lifecycle
// ---------------------------------------------------------------------------

// HasReadAccess reports whether actor may read bookID today: admins always,
// members while they hold an APPROVED or ACTIVE reservation covering today.
func (s *ReservationService) HasReadAccess(actor Actor, bookID int) (bool, error) {
	if actor.Admin {
		return true, nil
	}
	all, err := s.store.ReadAll()
	if err != nil {
		return false, err
	}
	today := s.today()
	for _, r := range all {
		if r.BookID != bookID || !actor.Is(r.Username) {
			continue
		}
		if (r.Status == StatusApproved || r.Status == StatusActive) && inDateRange(today, r.StartDate, r.EndDate) {
			return true, nil
		}
	}
	return false, nil
}

// LifecycleReport counts the reservations AdvanceLifecycle moved.
type LifecycleReport struct {
	Activated int
	Expired   int
}

// AdvanceLifecycle applies the time-driven transitions as of today:
// APPROVED becomes ACTIVE once its period has begun, and APPROVED or ACTIVE
// becomes EXPIRED once its end date has passed.
func (s *ReservationService) AdvanceLifecycle() (LifecycleReport, error) {
	var report LifecycleReport
	all, err := s.store.ReadAll()
	if err != nil {
		return report, err
	}
	today := s.today()
	for i := range all {
		r := &all[i]
		switch {
		case (r.Status == StatusApproved || r.Status == StatusActive) && r.EndDate.Before(today):
			r.Status = StatusExpired
			report.Expired++
		case r.Status == StatusApproved && !r.StartDate.After(today):
			r.Status = StatusActive
			report.Activated++
		}
	}
	if report.Activated+report.Expired == 0 {
		return report, nil
	}
	if err := s.store.SaveAll(all); err != nil {
		return LifecycleReport{}, err
	}
	s.logger.Info("reservation lifecycle advanced",
		"activated", report.Activated, "expired", report.Expired)
	return report, nil
}
