// Command import_books catalogues every content file in the books directory
// that no book refers to yet. It accepts the same flags as elibrary.
package main

import (
	"os"

	"ebook-library/internal/cli"
)

func main() {
	cli.ExecuteArgs(append([]string{"import-books"}, os.Args[1:]...))
}
