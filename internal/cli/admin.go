package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAdminCmd(r *runtime) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative account tasks",
	}

	var username string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an ADMIN account without logging in",
		Long: `Create an ADMIN account directly in the users file. Use it once to set up
a new library; further accounts can then be managed from the console.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := r.manager()
			if err != nil {
				return err
			}
			in := newPrompter(cmd)
			if username == "" {
				if username, err = in.line("Username: "); err != nil {
					return err
				}
			}
			password, err := in.secret("Password: ")
			if err != nil {
				return err
			}
			confirm, err := in.secret("Confirm password: ")
			if err != nil {
				return err
			}

			u, err := mgr.Users.Bootstrap(username, password, confirm)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s account %s\n", u.Role, u.Username)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&username, "username", "u", "", "name of the new admin (prompted when empty)")

	adminCmd.AddCommand(createCmd)
	return adminCmd
}

// prompter reads answers from the command's input, masking secrets when the
// input is a terminal.
type prompter struct {
	cmd *cobra.Command
	rd  *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{cmd: cmd, rd: bufio.NewReader(cmd.InOrStdin())}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.cmd.OutOrStdout(), label)
	s, err := p.rd.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) secret(label string) (string, error) {
	f, ok := p.cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.line(label)
	}
	fmt.Fprint(p.cmd.OutOrStdout(), label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
