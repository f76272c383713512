package library

import (
	"log/slog"
	"strings"

	"ebook-library/internal/validation"
)

// UserService owns accounts: registration, login and profile changes.
// Only an admin may change another user.
type UserService struct {
	store    *Store[User]
	validate *validation.Validator
	logger   *slog.Logger
}

// NewUserService returns the user service over store.
func NewUserService(store *Store[User], logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &UserService{store: store, validate: validation.Default(), logger: logger}
}

type credentialsInput struct {
	Username string `json:"username" validate:"notblank,nodelim"`
	Password string `json:"password" validate:"notblank,nodelim"`
	Confirm  string `json:"confirm" validate:"eqfield=Password"`
}

// UserFilter narrows ListUsers. Blank fields match everything.
type UserFilter struct {
	Username string
	Role     Role
}

var userSorter = NewSorter("username", map[string]Ordering[User]{
	"username": {Compare: func(a, b User) int { return compareFold(a.Username, b.Username) }},
	"role":     {Compare: func(a, b User) int { return strings.Compare(string(a.Role), string(b.Role)) }},
})

// UserSortFields lists the names ListUsers accepts as a sort field.
func UserSortFields() []string { return userSorter.Fields() }

// ---------------------------------------------------------------------------
// Registration and login
// ---------------------------------------------------------------------------

// Signup registers a MEMBER account.
func (s *UserService) Signup(username, password, confirm string) (User, error) {
	return s.create(username, password, confirm, RoleMember)
}

// CreateUser is the admin-side registration with an explicit role.
func (s *UserService) CreateUser(actor Actor, username, password, confirm string, role Role) (User, error) {
	if !actor.Admin {
		return User{}, PermissionDeniedf("only an admin can create users")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return User{}, err
	}
	return s.create(username, password, confirm, role)
}

// Bootstrap creates an ADMIN account without an acting admin. It exists for
// installation tooling that seeds the first administrator.
func (s *UserService) Bootstrap(username, password, confirm string) (User, error) {
	return s.create(username, password, confirm, RoleAdmin)
}

func (s *UserService) create(username, password, confirm string, role Role) (User, error) {
	in := credentialsInput{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
		Confirm:  strings.TrimSpace(confirm),
	}
	if err := validationError(s.validate.Validate(in)); err != nil {
		return User{}, err
	}
	_, exists, err := s.store.FindByKey(in.Username)
	if err != nil {
		return User{}, err
	}
	if exists {
		return User{}, Conflictf("username %q is already taken", in.Username)
	}

	u := User{Username: in.Username, Password: in.Password, Role: role}
	if err := s.store.Append(u); err != nil {
		return User{}, err
	}
	s.logger.Debug("user created", "username", u.Username, "role", u.Role)
	return u, nil
}

// Login returns the user whose stored password equals password.
func (s *UserService) Login(username, password string) (User, error) {
	u, ok, err := s.store.FindByKey(strings.TrimSpace(username))
	if err != nil {
		return User{}, err
	}
	if !ok || u.Password != strings.TrimSpace(password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// FindByUsername looks a user up ignoring case.
func (s *UserService) FindByUsername(username string) (User, error) {
	u, ok, err := s.store.FindByKey(strings.TrimSpace(username))
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, NotFoundf("user %q not found", username)
	}
	return u, nil
}

// ---------------------------------------------------------------------------
// Profile changes
// ---------------------------------------------------------------------------

// UpdateUsername renames target. A user may change the case of their own name;
// any other collision is a conflict. Reservations keep the old name.
func (s *UserService) UpdateUsername(actor Actor, target, newName string) (User, error) {
	target = strings.TrimSpace(target)
	if err := selfOrAdmin(actor, target); err != nil {
		return User{}, err
	}
	newName = strings.TrimSpace(newName)
	if err := validationError(s.validate.Var("username", newName, "notblank,nodelim")); err != nil {
		return User{}, err
	}

	users, err := s.store.ReadAll()
	if err != nil {
		return User{}, err
	}
	idx := -1
	for i, u := range users {
		if equalFold(u.Username, target) {
			idx = i
			continue
		}
		if equalFold(u.Username, newName) {
			return User{}, Conflictf("username %q is already taken", newName)
		}
	}
	if idx < 0 {
		return User{}, NotFoundf("user %q not found", target)
	}
	if users[idx].Username == newName {
		return User{}, Conflictf("username is already %q", newName)
	}

	old := users[idx].Username
	users[idx].Username = newName
	if err := s.store.SaveAll(users); err != nil {
		return User{}, err
	}
	s.logger.Debug("user renamed", "from", old, "to", newName)
	return users[idx], nil
}

type passwordInput struct {
	Password string `json:"new_password" validate:"notblank,nodelim"`
	Confirm  string `json:"confirm" validate:"eqfield=Password"`
}

// UpdatePassword changes target's password. Users changing their own password
// must supply the current one; an admin acting on someone else need not.
func (s *UserService) UpdatePassword(actor Actor, target, oldPassword, newPassword, confirm string) error {
	if err := selfOrAdmin(actor, target); err != nil {
		return err
	}
	in := passwordInput{Password: strings.TrimSpace(newPassword), Confirm: strings.TrimSpace(confirm)}
	if err := validationError(s.validate.Validate(in)); err != nil {
		return err
	}
	u, err := s.FindByUsername(target)
	if err != nil {
		return err
	}
	if !actor.Admin && u.Password != strings.TrimSpace(oldPassword) {
		return &Error{Kind: KindInvalidCredentials, Message: "current password is incorrect"}
	}

	u.Password = in.Password
	if _, err := s.store.UpdateByKey(u); err != nil {
		return err
	}
	s.logger.Debug("password changed", "username", u.Username, "by", actor.Username)
	return nil
}

// UpdateRole sets target's role. Admin only.
func (s *UserService) UpdateRole(actor Actor, target string, role Role) (User, error) {
	if !actor.Admin {
		return User{}, PermissionDeniedf("only an admin can change roles")
	}
	role, err := ParseRole(string(role))
	if err != nil {
		return User{}, err
	}
	u, err := s.FindByUsername(target)
	if err != nil {
		return User{}, err
	}
	if u.Role == role {
		return User{}, Conflictf("user %q already has role %s", u.Username, role)
	}

	u.Role = role
	if _, err := s.store.UpdateByKey(u); err != nil {
		return User{}, err
	}
	s.logger.Debug("role changed", "username", u.Username, "role", role)
	return u, nil
}

// DeleteUser removes target. Reservations made by the user are kept.
func (s *UserService) DeleteUser(actor Actor, target string) error {
	if err := selfOrAdmin(actor, target); err != nil {
		return err
	}
	removed, err := s.store.DeleteByKey(strings.TrimSpace(target))
	if err != nil {
		return err
	}
	if !removed {
		return NotFoundf("user %q not found", target)
	}
	s.logger.Debug("user deleted", "username", target, "by", actor.Username)
	return nil
}

// ListUsers filters, sorts and pages the user list. Admin only.
func (s *UserService) ListUsers(actor Actor, filter UserFilter, opts ListOptions) (Page[User], error) {
	if !actor.Admin {
		return Page[User]{Items: []User{}}, PermissionDeniedf("only an admin can list users")
	}
	users, err := s.store.ReadAll()
	if err != nil {
		return Page[User]{Items: []User{}}, err
	}
	filters := []func(User) bool{
		func(u User) bool { return containsFold(u.Username, filter.Username) },
	}
	if strings.TrimSpace(string(filter.Role)) != "" {
		role, err := ParseRole(string(filter.Role))
		if err != nil {
			return Page[User]{Items: []User{}}, err
		}
		filters = append(filters, func(u User) bool { return u.Role == role })
	}
	return FilterSortPaginate(users, filters, userSorter, opts), nil
}

// All returns every user unfiltered, for export tooling.
func (s *UserService) All() ([]User, error) { return s.store.ReadAll() }

func selfOrAdmin(actor Actor, target string) error {
	if actor.Admin || actor.Is(strings.TrimSpace(target)) {
		return nil
	}
	return PermissionDeniedf("%s may not modify user %q", actor.Username, target)
}

// validationError lifts validator field errors into a VALIDATION error.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindValidation, Message: "invalid input", cause: err}
}
