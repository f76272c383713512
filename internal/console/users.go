package console

import (
	"fmt"

	"ebook-library/library"
)

// ---------------------------------------------------------------------------
// Own account
// ---------------------------------------------------------------------------

func (c *Console) handleChangeUsername() error {
	name, err := c.prompt("New username: ")
	if err != nil {
		return err
	}
	u, err := c.mgr.Users.UpdateUsername(c.actor(), c.user.Username, name)
	if err != nil {
		return err
	}
	c.user = &u
	c.printf("You are now %s.\n", u.Username)
	return nil
}

func (c *Console) handleChangePassword() error {
	old, err := c.readPassword("Current password: ")
	if err != nil {
		return err
	}
	pw, err := c.readPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := c.readPassword("Confirm new password: ")
	if err != nil {
		return err
	}
	// Own password changes always need the old one, admins included.
	self := library.Actor{Username: c.user.Username}
	if err := c.mgr.Users.UpdatePassword(self, c.user.Username, old, pw, confirm); err != nil {
		return err
	}
	c.println("Password changed.")
	return nil
}

func (c *Console) handleDeleteAccount() error {
	ok, err := c.confirm("Delete your account? Reservations are kept")
	if err != nil || !ok {
		return err
	}
	if err := c.mgr.Users.DeleteUser(c.actor(), c.user.Username); err != nil {
		return err
	}
	c.printf("Account %s deleted.\n", c.user.Username)
	c.user = nil
	return nil
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func (c *Console) handleListUsers() error {
	var f library.UserFilter
	var err error
	if f.Username, err = c.prompt("Username contains (blank for any): "); err != nil {
		return err
	}
	role, err := c.promptRole("Role (blank for any): ", true)
	if err != nil {
		return err
	}
	f.Role = role
	opts, err := c.promptListOptions(library.UserSortFields())
	if err != nil {
		return err
	}
	return c.browse(func(page int) (int, error) {
		opts.Page = page
		p, err := c.mgr.Users.ListUsers(c.actor(), f, opts)
		if err != nil {
			return 0, err
		}
		if p.Total == 0 {
			c.println("No users found.")
			return 0, nil
		}
		rows := make([][]string, 0, len(p.Items))
		for _, u := range p.Items {
			rows = append(rows, []string{u.Username, string(u.Role)})
		}
		c.table([]string{"USERNAME", "ROLE"}, rows)
		return p.TotalPages, nil
	})
}

func (c *Console) handleCreateUser() error {
	username, err := c.prompt("Username: ")
	if err != nil {
		return err
	}
	pw, err := c.readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := c.readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	role, err := c.promptRole("Role [ADMIN, MEMBER]: ", false)
	if err != nil {
		return err
	}
	u, err := c.mgr.Users.CreateUser(c.actor(), username, pw, confirm, role)
	if err != nil {
		return err
	}
	c.printf("Created %s (%s).\n", u.Username, u.Role)
	return nil
}

func (c *Console) handleChangeRole() error {
	username, err := c.prompt("Username: ")
	if err != nil {
		return err
	}
	role, err := c.promptRole("New role [ADMIN, MEMBER]: ", false)
	if err != nil {
		return err
	}
	u, err := c.mgr.Users.UpdateRole(c.actor(), username, role)
	if err != nil {
		return err
	}
	if c.actor().Is(u.Username) {
		c.user = &u
	}
	c.printf("%s is now %s.\n", u.Username, u.Role)
	return nil
}

func (c *Console) handleDeleteUser() error {
	username, err := c.prompt("Username: ")
	if err != nil {
		return err
	}
	ok, err := c.confirm(fmt.Sprintf("Delete user %s?", username))
	if err != nil || !ok {
		return err
	}
	if err := c.mgr.Users.DeleteUser(c.actor(), username); err != nil {
		return err
	}
	c.printf("Deleted user %s.\n", username)
	if c.actor().Is(username) {
		c.user = nil
	}
	return nil
}

func (c *Console) promptRole(label string, optional bool) (library.Role, error) {
	for {
		s, err := c.prompt(label)
		if err != nil {
			return "", err
		}
		if s == "" && optional {
			return "", nil
		}
		role, err := library.ParseRole(s)
		if err == nil {
			return role, nil
		}
		c.println(describe(err))
	}
}
