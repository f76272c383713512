package importer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-library/library"
)

func TestTitleFromFilename(t *testing.T) {
	tests := map[string]string{
		"animal_farm":        "Animal Farm",
		"the_two-towers":     "The Two Towers",
		"1984":               "1984",
		"romeo__and__juliet": "Romeo And Juliet",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, TitleFromFilename(in))
		})
	}
}

func TestRunImportsOnlyUntrackedFiles(t *testing.T) {
	dir := t.TempDir()
	today := time.Date(2025, time.March, 2, 14, 0, 0, 0, time.Local)
	mgr, err := library.NewLibraryManager(filepath.Join(dir, "data"), filepath.Join(dir, "books"))
	require.NoError(t, err)

	for _, name := range []string{"animal_farm.txt", "dune.txt", "bad name.txt", "notes.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(mgr.BooksDir(), name), []byte("text\n"), 0o644))
	}
	_, err = mgr.Books.AddBook(library.System, library.NewBook{
		Title: "Dune", Author: "Frank Herbert", ReleasedDate: library.Date(1965, time.August, 1), Filename: "dune",
	})
	require.NoError(t, err)

	res, err := New(mgr, func() time.Time { return today }, nil).Run(library.System)
	require.NoError(t, err)

	require.Len(t, res.Imported, 1)
	b := res.Imported[0]
	assert.Equal(t, "Animal Farm", b.Title)
	assert.Equal(t, UnknownAuthor, b.Author)
	assert.Equal(t, UnknownGenre, b.Genre)
	assert.Equal(t, "animal_farm", b.Filename)
	assert.True(t, library.Date(2025, time.March, 2).Equal(b.ReleasedDate))
	assert.Equal(t, []string{"dune.txt"}, res.Skipped)
	assert.ErrorIs(t, res.Failed["bad name.txt"], library.ErrValidation)

	again, err := New(mgr, nil, nil).Run(library.System)
	require.NoError(t, err)
	assert.Empty(t, again.Imported)
	assert.ElementsMatch(t, []string{"animal_farm.txt", "dune.txt"}, again.Skipped)
}

func TestRunRequiresAdmin(t *testing.T) {
	dir := t.TempDir()
	mgr, err := library.NewLibraryManager(filepath.Join(dir, "data"), filepath.Join(dir, "books"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(mgr.BooksDir(), "dune.txt"), []byte("x\n"), 0o644))

	res, err := New(mgr, nil, nil).Run(library.Actor{Username: "alice"})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Failed["dune.txt"], library.ErrPermissionDenied)
}
