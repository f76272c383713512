package console

import (
	"fmt"
	"strconv"

	"ebook-library/library"
)

func (c *Console) handleReserve() error {
	id, err := c.promptInt("Book ID: ")
	if err != nil {
		return err
	}
	start, err := c.promptDate("Start date (YYYY-MM-DD): ", false)
	if err != nil {
		return err
	}
	end, err := c.promptDate("End date (YYYY-MM-DD): ", false)
	if err != nil {
		return err
	}
	r, err := c.mgr.Reservations.Create(c.actor(), id, start, end)
	if err != nil {
		return err
	}
	c.printf("Reservation %d for %q is %s.\n", r.ID, r.Book.Title(), r.Status)
	return nil
}

func (c *Console) handleListReservations() error {
	var f library.ReservationFilter
	var err error
	if c.user.IsAdmin() {
		if f.Username, err = c.prompt("Username contains (blank for any): "); err != nil {
			return err
		}
	}
	if f.BookTitle, err = c.prompt("Book title contains (blank for any): "); err != nil {
		return err
	}
	for {
		s, err := c.prompt("Status (blank for any): ")
		if err != nil {
			return err
		}
		if s == "" {
			break
		}
		if f.Status, err = library.ParseReservationStatus(s); err == nil {
			break
		}
		c.println(describe(err))
	}
	opts, err := c.promptListOptions(library.ReservationSortFields())
	if err != nil {
		return err
	}

	return c.browse(func(page int) (int, error) {
		opts.Page = page
		p, err := c.mgr.Reservations.List(c.actor(), f, opts)
		if err != nil {
			return 0, err
		}
		if p.Total == 0 {
			c.println("No reservations found.")
			return 0, nil
		}
		rows := make([][]string, 0, len(p.Items))
		for _, r := range p.Items {
			rows = append(rows, reservationRow(r))
		}
		c.table([]string{"ID", "BOOK", "USER", "STATUS", "START", "END", "RESERVED"}, rows)
		return p.TotalPages, nil
	})
}

func reservationRow(r library.Reservation) []string {
	return []string{
		strconv.Itoa(r.ID),
		r.Book.Title(),
		r.Username,
		string(r.Status),
		library.FormatDate(r.StartDate),
		library.FormatDate(r.EndDate),
		library.FormatDateTime(r.ReservationDate),
	}
}

// statusHandler returns a handler moving a chosen reservation to status.
func (c *Console) statusHandler(status library.ReservationStatus) func() error {
	return func() error {
		id, err := c.promptInt("Reservation ID: ")
		if err != nil {
			return err
		}
		r, err := c.mgr.Reservations.UpdateStatus(c.actor(), id, status)
		if err != nil {
			return err
		}
		c.printf("Reservation %d is now %s.\n", r.ID, r.Status)
		return nil
	}
}

func (c *Console) handleChangeStart() error {
	id, err := c.promptInt("Reservation ID: ")
	if err != nil {
		return err
	}
	start, err := c.promptDate("New start date (YYYY-MM-DD): ", false)
	if err != nil {
		return err
	}
	r, err := c.mgr.Reservations.UpdateStartDate(c.actor(), id, start)
	if err != nil {
		return err
	}
	c.printf("Reservation %d now runs %s to %s.\n", r.ID, library.FormatDate(r.StartDate), library.FormatDate(r.EndDate))
	return nil
}

func (c *Console) handleChangeEnd() error {
	id, err := c.promptInt("Reservation ID: ")
	if err != nil {
		return err
	}
	end, err := c.promptDate("New end date (YYYY-MM-DD): ", false)
	if err != nil {
		return err
	}
	r, err := c.mgr.Reservations.UpdateEndDate(c.actor(), id, end)
	if err != nil {
		return err
	}
	c.printf("Reservation %d now runs %s to %s.\n", r.ID, library.FormatDate(r.StartDate), library.FormatDate(r.EndDate))
	return nil
}

func (c *Console) handleDeleteReservation() error {
	id, err := c.promptInt("Reservation ID: ")
	if err != nil {
		return err
	}
	ok, err := c.confirm(fmt.Sprintf("Delete reservation %d?", id))
	if err != nil || !ok {
		return err
	}
	if err := c.mgr.Reservations.Delete(c.actor(), id); err != nil {
		return err
	}
	c.printf("Deleted reservation %d.\n", id)
	return nil
}

func (c *Console) handleSweep() error {
	report, err := c.mgr.Reservations.AdvanceLifecycle()
	if err != nil {
		return err
	}
	c.printf("Activated %d, expired %d reservation(s).\n", report.Activated, report.Expired)
	return nil
}
