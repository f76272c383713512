package library

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// NextID returns one more than the largest numeric first column in the file at
// path, or 1 when the file holds only a header (or does not exist yet).
// Non-numeric first columns are ignored.
func NextID(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 1, nil
	}
	if err != nil {
		return 0, IOError("open", path, err)
	}
	defer f.Close()

	maxID := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		col, _, _ := strings.Cut(sc.Text(), Delimiter)
		id, err := strconv.Atoi(strings.TrimSpace(col))
		if err != nil || id < 0 {
			continue
		}
		maxID = max(maxID, id)
	}
	if err := sc.Err(); err != nil {
		return 0, IOError("read", path, err)
	}
	return maxID + 1, nil
}

// Allocator hands out ids that never repeat for a data file, even after the
// record holding the largest id is deleted. The high-water mark is kept in
// <path>.seq next to the data file.
type Allocator struct {
	path string
}

// NewAllocator returns the allocator for the data file at path.
func NewAllocator(path string) *Allocator {
	return &Allocator{path: path}
}

// Next reserves and returns the next id.
func (a *Allocator) Next() (int, error) {
	next, err := NextID(a.path)
	if err != nil {
		return 0, err
	}
	mark, err := a.highWater()
	if err != nil {
		return 0, err
	}
	next = max(next, mark+1)
	if err := writeFileAtomic(a.seqPath(), []string{strconv.Itoa(next)}); err != nil {
		return 0, IOError("write", a.seqPath(), err)
	}
	return next, nil
}

func (a *Allocator) seqPath() string { return a.path + ".seq" }

func (a *Allocator) highWater() (int, error) {
	b, err := os.ReadFile(a.seqPath())
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, IOError("read", a.seqPath(), err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		// A damaged mark only loses the reuse guard; the scan still applies.
		return 0, nil
	}
	return n, nil
}
