/*
Package directory is the in-memory account store of the development server.

Accounts are keyed by id and by normalized email. Passwords are kept only as bcrypt hashes.
Every returned profile is a copy.
*/
package directory

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"hzpresence/internal/app/user"
	"hzpresence/internal/pkg/randx"
)

var (
	// ErrEmailTaken is returned by Create for an address that is already registered.
	ErrEmailTaken = errors.New("directory: email already registered")

	// ErrNotFound is returned for unknown accounts.
	ErrNotFound = errors.New("directory: account not found")

	// ErrBadPassword is returned by Authenticate when the password does not match.
	ErrBadPassword = errors.New("directory: password mismatch")
)

type account struct {
	profile      user.User
	passwordHash []byte
}

// Directory is safe for concurrent use.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]*account
	byEmail map[string]*account
	cost    int
}

// New returns an empty directory hashing with bcrypt.DefaultCost.
func New() *Directory {
	return NewWithCost(bcrypt.DefaultCost)
}

// NewWithCost returns an empty directory hashing with the given bcrypt cost.
func NewWithCost(cost int) *Directory {
	return &Directory{
		byID:    make(map[string]*account),
		byEmail: make(map[string]*account),
		cost:    cost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers an account. An empty full name gets a generated display name.
func (d *Directory) Create(email, password, fullName, bio string) (*user.User, error) {
	email = normalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return nil, err
	}

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		if fullName, err = randx.DisplayName(); err != nil {
			fullName = "User_X"
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[email]; exists {
		return nil, ErrEmailTaken
	}

	a := &account{
		profile: user.User{
			ID:       randx.AccountID(),
			Email:    email,
			FullName: fullName,
			Bio:      bio,
		},
		passwordHash: hash,
	}
	d.byID[a.profile.ID] = a
	d.byEmail[email] = a

	return a.profile.Clone(), nil
}

// Authenticate returns the account matching email and password.
func (d *Directory) Authenticate(email, password string) (*user.User, error) {
	d.mu.RLock()
	a, ok := d.byEmail[normalizeEmail(email)]
	var hash []byte
	var profile user.User
	if ok {
		hash = a.passwordHash
		profile = a.profile
	}
	d.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrBadPassword
	}
	return &profile, nil
}

// Get returns the profile of id.
func (d *Directory) Get(id string) (*user.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.profile.Clone(), nil
}

// Update applies patch to the profile of id and returns the result.
func (d *Directory) Update(id string, patch user.Patch) (*user.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.profile = patch.Apply(a.profile)
	return a.profile.Clone(), nil
}

// Exists reports whether id is a registered account.
func (d *Directory) Exists(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.byID[id]
	return ok
}
