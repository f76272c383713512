// Command elibrary is a file-backed e-book lending library with an
// interactive console.
package main

import "ebook-library/internal/cli"

func main() {
	cli.Execute()
}
