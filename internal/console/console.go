// Package console is the interactive text front-end of the library.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"
	"golang.org/x/time/rate"

	"ebook-library/library"
)

// listPageSize is the number of rows shown per page of a listing.
const listPageSize = 10

// errQuit ends the session loop.
var errQuit = errors.New("quit")

// Console runs the menu loop for one user at a time.
type Console struct {
	mgr    *library.LibraryManager
	sc     *bufio.Scanner
	in     io.Reader
	out    io.Writer
	logger *slog.Logger

	// loginLimiter throttles failed logins.
	loginLimiter *rate.Limiter

	user *library.User
}

// Option configures a Console.
type Option func(*Console)

// WithLoginLimit allows burst failed logins, refilled one per interval.
func WithLoginLimit(interval time.Duration, burst int) Option {
	return func(c *Console) { c.loginLimiter = rate.NewLimiter(rate.Every(interval), burst) }
}

// New creates a console reading commands from in and writing to out.
func New(mgr *library.LibraryManager, in io.Reader, out io.Writer, logger *slog.Logger, opts ...Option) *Console {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	c := &Console{
		mgr:          mgr,
		sc:           sc,
		in:           in,
		out:          out,
		logger:       logger,
		loginLimiter: rate.NewLimiter(rate.Every(10*time.Second), 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run loops until the user exits, input ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	c.println("Welcome to the e-book library!")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		var err error
		if c.user == nil {
			err = c.guestMenu()
		} else {
			err = c.memberMenu()
		}
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			c.println("Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *Console) actor() library.Actor { return library.ActorFor(*c.user) }

// ---------------------------------------------------------------------------
// Menus
// ---------------------------------------------------------------------------

func (c *Console) guestMenu() error {
	c.println("\nCommands: signup, login, exit")
	cmd, err := c.prompt("> ")
	if err != nil {
		return err
	}
	switch strings.ToLower(cmd) {
	case "signup":
		return c.handleSignup()
	case "login":
		return c.handleLogin()
	case "exit", "quit":
		return errQuit
	case "":
		return nil
	default:
		c.println("Unknown command.")
		return nil
	}
}

type command struct {
	name    string
	admin   bool
	handler func() error
}

func (c *Console) commands() []command {
	return []command{
		{"list books", false, c.handleListBooks},
		{"view book", false, c.handleViewBook},
		{"read book", false, c.handleReadBook},
		{"reserve", false, c.handleReserve},
		{"list reservations", false, c.handleListReservations},
		{"cancel reservation", false, c.statusHandler(library.StatusCancelled)},
		{"return book", false, c.statusHandler(library.StatusReturned)},
		{"change start", false, c.handleChangeStart},
		{"change end", false, c.handleChangeEnd},
		{"change username", false, c.handleChangeUsername},
		{"change password", false, c.handleChangePassword},
		{"delete account", false, c.handleDeleteAccount},
		{"add book", true, c.handleAddBook},
		{"edit book", true, c.handleEditBook},
		{"delete book", true, c.handleDeleteBook},
		{"approve", true, c.statusHandler(library.StatusApproved)},
		{"deny", true, c.statusHandler(library.StatusDenied)},
		{"delete reservation", true, c.handleDeleteReservation},
		{"sweep", true, c.handleSweep},
		{"list users", true, c.handleListUsers},
		{"create user", true, c.handleCreateUser},
		{"change role", true, c.handleChangeRole},
		{"delete user", true, c.handleDeleteUser},
	}
}

func (c *Console) memberMenu() error {
	var names []string
	for _, cmd := range c.commands() {
		if !cmd.admin || c.user.IsAdmin() {
			names = append(names, cmd.name)
		}
	}
	c.printf("\n[%s] Commands: %s, logout, exit\n", c.user.Username, strings.Join(names, ", "))
	in, err := c.prompt("> ")
	if err != nil {
		return err
	}
	in = strings.ToLower(in)
	switch in {
	case "logout":
		c.printf("Logged out %s.\n", c.user.Username)
		c.user = nil
		return nil
	case "exit", "quit":
		return errQuit
	case "":
		return nil
	}
	for _, cmd := range c.commands() {
		if cmd.name == in && (!cmd.admin || c.user.IsAdmin()) {
			return c.report(cmd.handler())
		}
	}
	c.println("Unknown command.")
	return nil
}

// report prints service errors and swallows them; only input errors end the
// session.
func (c *Console) report(err error) error {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, errQuit) {
		return err
	}
	c.println(describe(err))
	if library.KindOf(err) == library.KindIO {
		c.logger.Error("operation failed", "error", err)
	}
	return nil
}

func describe(err error) string {
	switch library.KindOf(err) {
	case library.KindNotFound:
		return "Not found: " + err.Error()
	case library.KindPermissionDenied:
		return "Permission denied: " + err.Error()
	case library.KindConflict:
		return "Not possible: " + err.Error()
	case library.KindValidation:
		return "Invalid input: " + err.Error()
	case library.KindInvalidCredentials:
		return "Invalid credentials: " + err.Error()
	case library.KindIO:
		return "Storage error, see the log for details."
	default:
		return "Error: " + err.Error()
	}
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

func (c *Console) handleSignup() error {
	username, err := c.prompt("Username: ")
	if err != nil {
		return err
	}
	password, err := c.readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := c.readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	u, err := c.mgr.Users.Signup(username, password, confirm)
	if err != nil {
		return c.report(err)
	}
	c.printf("Account %s created. Please log in.\n", u.Username)
	return nil
}

func (c *Console) handleLogin() error {
	if tokens := c.loginLimiter.Tokens(); tokens < 1 {
		wait := time.Duration((1 - tokens) / float64(c.loginLimiter.Limit()) * float64(time.Second))
		c.printf("Too many failed logins. Try again in %s.\n", wait.Round(time.Second))
		return nil
	}

	username, err := c.prompt("Username: ")
	if err != nil {
		return err
	}
	password, err := c.readPassword("Password: ")
	if err != nil {
		return err
	}
	u, err := c.mgr.Users.Login(username, password)
	if err != nil {
		c.logger.Warn("failed login", "username", username)
		c.loginLimiter.Allow()
		return c.report(err)
	}
	c.user = &u
	c.printf("Welcome, %s (%s).\n", u.Username, u.Role)
	return nil
}

// ---------------------------------------------------------------------------
// Input helpers
// ---------------------------------------------------------------------------

func (c *Console) prompt(label string) (string, error) {
	c.printf("%s", label)
	if !c.sc.Scan() {
		if err := c.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.sc.Text()), nil
}

// readPassword masks input when reading from a terminal.
func (c *Console) readPassword(label string) (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.printf("%s", label)
		b, err := term.ReadPassword(int(f.Fd()))
		c.println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return c.prompt(label)
}

func (c *Console) promptInt(label string) (int, error) {
	for {
		s, err := c.prompt(label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, nil
		}
		c.println("Please enter a number.")
	}
}

// promptDate returns the zero time for blank input when optional is set.
func (c *Console) promptDate(label string, optional bool) (time.Time, error) {
	for {
		s, err := c.prompt(label)
		if err != nil {
			return time.Time{}, err
		}
		if s == "" && optional {
			return time.Time{}, nil
		}
		d, err := library.ParseDate(s)
		if err == nil {
			return d, nil
		}
		c.println("Please enter a date as YYYY-MM-DD.")
	}
}

func (c *Console) confirm(label string) (bool, error) {
	s, err := c.prompt(label + " (y/N): ")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(s, "y") || strings.EqualFold(s, "yes"), nil
}

// promptListOptions asks for a sort field and direction.
func (c *Console) promptListOptions(fields []string) (library.ListOptions, error) {
	field, err := c.prompt(fmt.Sprintf("Sort by [%s] (blank for default): ", strings.Join(fields, ", ")))
	if err != nil {
		return library.ListOptions{}, err
	}
	desc, err := c.confirm("Descending?")
	if err != nil {
		return library.ListOptions{}, err
	}
	return library.ListOptions{SortField: field, Ascending: !desc, Page: 1, PageSize: listPageSize}, nil
}

// browse shows page after page until the user quits. show renders one page
// and returns the total number of pages.
func (c *Console) browse(show func(page int) (int, error)) error {
	page := 1
	for {
		total, err := show(page)
		if err != nil {
			return err
		}
		if total <= 1 {
			return nil
		}
		c.printf("Page %d of %d. [n]ext, [p]revious, [q]uit: ", page, total)
		s, err := c.prompt("")
		if err != nil {
			return err
		}
		switch strings.ToLower(s) {
		case "n", "next":
			page = min(page+1, total)
		case "p", "prev", "previous":
			page = max(page-1, 1)
		default:
			return nil
		}
	}
}

// ---------------------------------------------------------------------------
// Output helpers
// ---------------------------------------------------------------------------

func (c *Console) printf(format string, args ...any) { fmt.Fprintf(c.out, format, args...) }
func (c *Console) println(args ...any)               { fmt.Fprintln(c.out, args...) }

// table writes rows as aligned columns under header.
func (c *Console) table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()
}
