package console

import (
	"fmt"
	"strconv"
	"strings"

	"ebook-library/library"
)

func (c *Console) handleListBooks() error {
	var f library.BookFilter
	var err error
	if f.Title, err = c.prompt("Title contains (blank for any): "); err != nil {
		return err
	}
	if f.Author, err = c.prompt("Author contains (blank for any): "); err != nil {
		return err
	}
	if f.Genre, err = c.prompt("Genre contains (blank for any): "); err != nil {
		return err
	}
	if f.ReleasedFrom, err = c.promptDate("Released on or after (YYYY-MM-DD, blank for any): ", true); err != nil {
		return err
	}
	if f.ReleasedTo, err = c.promptDate("Released on or before (YYYY-MM-DD, blank for any): ", true); err != nil {
		return err
	}
	opts, err := c.promptListOptions(library.BookSortFields())
	if err != nil {
		return err
	}

	return c.browse(func(page int) (int, error) {
		opts.Page = page
		p, err := c.mgr.Books.ListBooks(f, opts)
		if err != nil {
			return 0, err
		}
		if p.Total == 0 {
			c.println("No books found.")
			return 0, nil
		}
		rows := make([][]string, 0, len(p.Items))
		for _, b := range p.Items {
			rows = append(rows, bookRow(b))
		}
		c.table([]string{"ID", "TITLE", "AUTHOR", "GENRE", "RELEASED"}, rows)
		return p.TotalPages, nil
	})
}

func bookRow(b library.Book) []string {
	return []string{strconv.Itoa(b.ID), b.Title, b.Author, b.Genre, library.FormatDate(b.ReleasedDate)}
}

func (c *Console) handleViewBook() error {
	id, err := c.promptInt("Book ID: ")
	if err != nil {
		return err
	}
	b, err := c.mgr.Books.ViewBook(id)
	if err != nil {
		return err
	}
	c.printf("ID:       %d\nTitle:    %s\nAuthor:   %s\nGenre:    %s\nReleased: %s\nFile:     %s.txt\n",
		b.ID, b.Title, b.Author, b.Genre, library.FormatDate(b.ReleasedDate), b.Filename)
	return nil
}

// handleReadBook pages through a book the user has access to.
func (c *Console) handleReadBook() error {
	id, err := c.promptInt("Book ID: ")
	if err != nil {
		return err
	}
	b, err := c.mgr.Books.ViewBook(id)
	if err != nil {
		return err
	}
	// Access first; the page count is only shown to readers.
	if _, err := c.mgr.ReadBookFor(c.actor(), id, 1); err != nil {
		return err
	}
	total, err := c.mgr.Books.TotalPages(b.Filename)
	if err != nil {
		return err
	}
	c.printf("Reading %q by %s\n", b.Title, b.Author)
	return c.browse(func(page int) (int, error) {
		lines, err := c.mgr.ReadBookFor(c.actor(), id, page)
		if err != nil {
			return 0, err
		}
		c.println(strings.Repeat("-", 40))
		for _, l := range lines {
			c.println(l)
		}
		c.println(strings.Repeat("-", 40))
		return total, nil
	})
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func (c *Console) handleAddBook() error {
	var in library.NewBook
	var err error
	if in.Title, err = c.prompt("Title: "); err != nil {
		return err
	}
	if in.Author, err = c.prompt("Author: "); err != nil {
		return err
	}
	if in.Genre, err = c.prompt("Genre: "); err != nil {
		return err
	}
	if in.ReleasedDate, err = c.promptDate("Released (YYYY-MM-DD): ", false); err != nil {
		return err
	}
	if in.Filename, err = c.prompt("Content file name (without .txt): "); err != nil {
		return err
	}
	b, err := c.mgr.Books.AddBook(c.actor(), in)
	if err != nil {
		return err
	}
	c.printf("Added book %d: %s\n", b.ID, b.Title)
	return nil
}

func (c *Console) handleEditBook() error {
	id, err := c.promptInt("Book ID: ")
	if err != nil {
		return err
	}
	if _, err := c.mgr.Books.ViewBook(id); err != nil {
		return err
	}
	field, err := c.prompt("Field to change [title, author, genre, released, filename]: ")
	if err != nil {
		return err
	}
	actor := c.actor()
	var b library.Book
	switch strings.ToLower(field) {
	case "released":
		d, err := c.promptDate("New release date (YYYY-MM-DD): ", false)
		if err != nil {
			return err
		}
		b, err = c.mgr.Books.UpdateReleasedDate(actor, id, d)
		if err != nil {
			return err
		}
	case "title", "author", "genre", "filename":
		value, err := c.prompt(fmt.Sprintf("New %s: ", field))
		if err != nil {
			return err
		}
		update := map[string]func(library.Actor, int, string) (library.Book, error){
			"title":    c.mgr.Books.UpdateTitle,
			"author":   c.mgr.Books.UpdateAuthor,
			"genre":    c.mgr.Books.UpdateGenre,
			"filename": c.mgr.Books.UpdateFilename,
		}[strings.ToLower(field)]
		if b, err = update(actor, id, value); err != nil {
			return err
		}
	default:
		c.println("Unknown field.")
		return nil
	}
	c.println("Updated:")
	c.table([]string{"ID", "TITLE", "AUTHOR", "GENRE", "RELEASED"}, [][]string{bookRow(b)})
	return nil
}

func (c *Console) handleDeleteBook() error {
	id, err := c.promptInt("Book ID: ")
	if err != nil {
		return err
	}
	ok, err := c.confirm(fmt.Sprintf("Delete book %d?", id))
	if err != nil || !ok {
		return err
	}
	if err := c.mgr.Books.DeleteBook(c.actor(), id); err != nil {
		return err
	}
	c.printf("Deleted book %d.\n", id)
	return nil
}
