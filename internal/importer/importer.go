// Package importer registers content files in the books directory that no
// catalogue entry points at yet.
package importer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ebook-library/library"
)

// Placeholder metadata for imported books; admins edit it afterwards.
const (
	UnknownAuthor = "Unknown"
	UnknownGenre  = "Unknown"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Result lists what an import run did.
type Result struct {
	Imported []library.Book
	Skipped  []string // file names already catalogued
	Failed   map[string]error
}

// Importer adds untracked books/*.txt files to the catalogue.
type Importer struct {
	mgr    *library.LibraryManager
	now    func() time.Time
	logger *slog.Logger
}

// New returns an importer for mgr. A nil now defaults to time.Now.
func New(mgr *library.LibraryManager, now func() time.Time, logger *slog.Logger) *Importer {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{mgr: mgr, now: now, logger: logger.With("component", "importer")}
}

// Run scans the books directory and registers every .txt file that no book
// references, in file-name order, on behalf of actor.
func (im *Importer) Run(actor library.Actor) (Result, error) {
	res := Result{Failed: map[string]error{}}

	entries, err := os.ReadDir(im.mgr.BooksDir())
	if err != nil {
		return res, fmt.Errorf("read books directory: %w", err)
	}
	books, err := im.mgr.Books.All()
	if err != nil {
		return res, fmt.Errorf("load catalogue: %w", err)
	}
	known := make(map[string]bool, len(books))
	for _, b := range books {
		known[b.Filename] = true
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	released := library.DateOf(im.now())
	for _, name := range names {
		stem := strings.TrimSuffix(name, ".txt")
		if known[stem] {
			res.Skipped = append(res.Skipped, name)
			continue
		}
		if !validName.MatchString(stem) {
			res.Failed[name] = library.Validationf("file name %q may only contain letters, digits, '_' and '-'", stem)
			im.logger.Warn("skipping file", "file", name, "error", res.Failed[name])
			continue
		}

		b, err := im.mgr.Books.AddBook(actor, library.NewBook{
			Title:        TitleFromFilename(stem),
			Author:       UnknownAuthor,
			Genre:        UnknownGenre,
			ReleasedDate: released,
			Filename:     stem,
		})
		if err != nil {
			res.Failed[name] = err
			im.logger.Error("import failed", "file", name, "error", err)
			continue
		}
		im.logger.Info("book imported", "file", name, "id", b.ID, "title", b.Title)
		res.Imported = append(res.Imported, b)
	}
	return res, nil
}

// TitleFromFilename turns "the_two-towers" into "The Two Towers".
func TitleFromFilename(stem string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(stem))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
