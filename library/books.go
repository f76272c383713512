package library

import (
	"bufio"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ebook-library/internal/validation"
)

// PageSize is the number of lines on one page of book content.
const PageSize = 20

// BookService manages the catalogue and serves book content by page.
type BookService struct {
	store    *Store[Book]
	ids      *Allocator
	booksDir string
	validate *validation.Validator
	logger   *slog.Logger
}

// NewBookService returns the book service over store, with content files in booksDir.
func NewBookService(store *Store[Book], ids *Allocator, booksDir string, logger *slog.Logger) *BookService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BookService{
		store:    store,
		ids:      ids,
		booksDir: booksDir,
		validate: validation.Default(),
		logger:   logger,
	}
}

// NewBook is the input of AddBook.
type NewBook struct {
	Title        string    `json:"title" validate:"notblank,nodelim"`
	Author       string    `json:"author" validate:"notblank,nodelim"`
	Genre        string    `json:"genre" validate:"nodelim"`
	ReleasedDate time.Time `json:"released_date" validate:"required"`
	Filename     string    `json:"filename" validate:"filename"`
}

// BookFilter narrows ListBooks. Blank text and zero dates match everything.
type BookFilter struct {
	ID           string
	Title        string
	Author       string
	Genre        string
	ReleasedFrom time.Time
	ReleasedTo   time.Time
}

var bookSorter = NewSorter("id", map[string]Ordering[Book]{
	"id":           {Compare: func(a, b Book) int { return compareInt(a.ID, b.ID) }},
	"title":        {Compare: func(a, b Book) int { return compareFold(a.Title, b.Title) }},
	"author":       {Compare: func(a, b Book) int { return compareFold(a.Author, b.Author) }},
	"genre":        {Compare: func(a, b Book) int { return compareFold(a.Genre, b.Genre) }},
	"releasedDate": {Compare: func(a, b Book) int { return compareTime(a.ReleasedDate, b.ReleasedDate) }},
})

// BookSortFields lists the names ListBooks accepts as a sort field.
func BookSortFields() []string { return bookSorter.Fields() }

// ---------------------------------------------------------------------------
// Catalogue
// ---------------------------------------------------------------------------

// AddBook registers a book whose content file books/<filename>.txt must
// already exist. Admin only.
func (s *BookService) AddBook(actor Actor, in NewBook) (Book, error) {
	if err := adminOnly(actor, "add books"); err != nil {
		return Book{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Genre = strings.TrimSpace(in.Genre)
	in.Filename = strings.TrimSpace(in.Filename)
	if err := validationError(s.validate.Validate(in)); err != nil {
		return Book{}, err
	}
	if _, err := os.Stat(s.contentPath(in.Filename)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Book{}, NotFoundf("content file %s does not exist", s.contentPath(in.Filename))
		}
		return Book{}, IOError("stat", s.contentPath(in.Filename), err)
	}

	id, err := s.ids.Next()
	if err != nil {
		return Book{}, err
	}
	b := Book{
		ID:           id,
		Title:        in.Title,
		Author:       in.Author,
		Genre:        in.Genre,
		ReleasedDate: DateOf(in.ReleasedDate),
		Filename:     in.Filename,
	}
	if err := s.store.Append(b); err != nil {
		return Book{}, err
	}
	s.logger.Debug("book added", "id", b.ID, "title", b.Title)
	return b, nil
}

// ViewBook returns the book with the given id.
func (s *BookService) ViewBook(id int) (Book, error) {
	b, ok, err := s.store.FindByKey(strconv.Itoa(id))
	if err != nil {
		return Book{}, err
	}
	if !ok {
		return Book{}, NotFoundf("book %d not found", id)
	}
	return b, nil
}

// UpdateTitle sets the title of book id. Admin only.
func (s *BookService) UpdateTitle(actor Actor, id int, title string) (Book, error) {
	title = strings.TrimSpace(title)
	return s.update(actor, id, "title", title, "notblank,nodelim", func(b *Book) { b.Title = title })
}

// UpdateAuthor sets the author of book id. Admin only.
func (s *BookService) UpdateAuthor(actor Actor, id int, author string) (Book, error) {
	author = strings.TrimSpace(author)
	return s.update(actor, id, "author", author, "notblank,nodelim", func(b *Book) { b.Author = author })
}

// UpdateGenre sets the genre of book id. Admin only.
func (s *BookService) UpdateGenre(actor Actor, id int, genre string) (Book, error) {
	genre = strings.TrimSpace(genre)
	return s.update(actor, id, "genre", genre, "nodelim", func(b *Book) { b.Genre = genre })
}

// UpdateReleasedDate sets the release date of book id. Admin only.
func (s *BookService) UpdateReleasedDate(actor Actor, id int, released time.Time) (Book, error) {
	return s.update(actor, id, "released_date", released, "required", func(b *Book) { b.ReleasedDate = DateOf(released) })
}

// UpdateFilename repoints the book at another content file. The file is not
// required to exist yet.
func (s *BookService) UpdateFilename(actor Actor, id int, filename string) (Book, error) {
	filename = strings.TrimSpace(filename)
	return s.update(actor, id, "filename", filename, "filename", func(b *Book) { b.Filename = filename })
}

func (s *BookService) update(actor Actor, id int, field string, value any, tag string, apply func(*Book)) (Book, error) {
	if err := adminOnly(actor, "edit books"); err != nil {
		return Book{}, err
	}
	if err := validationError(s.validate.Var(field, value, tag)); err != nil {
		return Book{}, err
	}
	b, err := s.ViewBook(id)
	if err != nil {
		return Book{}, err
	}
	apply(&b)
	if _, err := s.store.UpdateByKey(b); err != nil {
		return Book{}, err
	}
	s.logger.Debug("book updated", "id", id, "field", field)
	return b, nil
}

// DeleteBook removes the catalogue entry. Reservations of the book are kept
// and from then on report a missing book.
func (s *BookService) DeleteBook(actor Actor, id int) error {
	if err := adminOnly(actor, "delete books"); err != nil {
		return err
	}
	removed, err := s.store.DeleteByKey(strconv.Itoa(id))
	if err != nil {
		return err
	}
	if !removed {
		return NotFoundf("book %d not found", id)
	}
	s.logger.Debug("book deleted", "id", id, "by", actor.Username)
	return nil
}

// ListBooks filters, sorts and pages the catalogue.
func (s *BookService) ListBooks(filter BookFilter, opts ListOptions) (Page[Book], error) {
	books, err := s.store.ReadAll()
	if err != nil {
		return Page[Book]{Items: []Book{}}, err
	}
	filters := []func(Book) bool{
		func(b Book) bool { return containsFold(strconv.Itoa(b.ID), filter.ID) },
		func(b Book) bool { return containsFold(b.Title, filter.Title) },
		func(b Book) bool { return containsFold(b.Author, filter.Author) },
		func(b Book) bool { return containsFold(b.Genre, filter.Genre) },
		func(b Book) bool { return inDateRange(b.ReleasedDate, filter.ReleasedFrom, filter.ReleasedTo) },
	}
	return FilterSortPaginate(books, filters, bookSorter, opts), nil
}

// All returns the whole catalogue unfiltered, for export and import tooling.
func (s *BookService) All() ([]Book, error) { return s.store.ReadAll() }

// ---------------------------------------------------------------------------
// Content
// ---------------------------------------------------------------------------

// ReadBook returns page (1-based) of books/<filename>.txt, PageSize lines per
// page. Without access the result is empty and the error PERMISSION_DENIED; a
// page past the end is empty without error.
func (s *BookService) ReadBook(filename string, page int, hasAccess bool) ([]string, error) {
	if !hasAccess {
		return []string{}, PermissionDeniedf("no active reservation for %q", filename)
	}
	lines, err := s.contentLines(filename)
	if err != nil {
		return []string{}, err
	}
	return Paginate(lines, page, PageSize).Items, nil
}

// TotalPages reports how many pages the content file has.
func (s *BookService) TotalPages(filename string) (int, error) {
	lines, err := s.contentLines(filename)
	if err != nil {
		return 0, err
	}
	return Paginate(lines, 1, PageSize).TotalPages, nil
}

// HasNextPage reports whether a page follows page.
func (s *BookService) HasNextPage(filename string, page int) (bool, error) {
	total, err := s.TotalPages(filename)
	if err != nil {
		return false, err
	}
	return max(page, 1) < total, nil
}

// ContentPath returns where the content of filename is expected.
func (s *BookService) ContentPath(filename string) string { return s.contentPath(filename) }

func (s *BookService) contentPath(filename string) string {
	return filepath.Join(s.booksDir, filename+".txt")
}

func (s *BookService) contentLines(filename string) ([]string, error) {
	filename = strings.TrimSpace(filename)
	if err := validationError(s.validate.Var("filename", filename, "filename")); err != nil {
		return nil, err
	}
	path := s.contentPath(filename)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NotFoundf("content file %s does not exist", path)
	}
	if err != nil {
		s.logger.Error("open content failed", "file", path, "error", err)
		return nil, IOError("open", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		s.logger.Error("read content failed", "file", path, "error", err)
		return nil, IOError("read", path, err)
	}
	return lines, nil
}

func adminOnly(actor Actor, what string) error {
	if actor.Admin {
		return nil
	}
	return PermissionDeniedf("only an admin can %s", what)
}
