// Package models defines the domain entities for the expense tracker.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 50

// MaxLabelLength is the maximum allowed length for expense labels.
const MaxLabelLength = 200

// MinPasswordLength is the shortest password accepted on register and password change.
const MinPasswordLength = 6

// DefaultCategoryColor is used when a category is created without a colour
// and when a report row names a category the owner no longer has.
const DefaultCategoryColor = "#285bde"

// AllCategories is the report filter value that disables category filtering.
const AllCategories = "ALL"

// CategorySeed is a (name, colour) pair created for owners without categories.
type CategorySeed struct {
	Name  string
	Color string
}

// DefaultCategories is the fixed seed set, in display order.
var DefaultCategories = []CategorySeed{
	{Name: "Food", Color: "#f59e0b"},
	{Name: "Transport", Color: "#14b8a6"},
	{Name: "Housing", Color: "#4f5868"},
	{Name: "Leisure", Color: "#a855f7"},
	{Name: "Health", Color: "#ef4444"},
	{Name: "Education", Color: "#285bde"},
	{Name: "Other", Color: "#9ca3af"},
}

// NormalizeUsername returns the comparison key for a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// User is a registered account. Username is stored as typed (trimmed);
// lookups go through NormalizeUsername.
type User struct {
	Username      string    `json:"username"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Age           int       `json:"age"`
	Sex           string    `json:"sex"`
	AvatarDataURL string    `json:"avatarDataUrl"`
	PasswordHash  string    `json:"passwordHash"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (u User) RecordID() string    { return NormalizeUsername(u.Username) }
func (u User) RecordOwner() string { return NormalizeUsername(u.Username) }

// SessionRecord is the persisted trace of a login.
type SessionRecord struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s SessionRecord) RecordID() string    { return s.ID }
func (s SessionRecord) RecordOwner() string { return NormalizeUsername(s.Username) }

// Category is an owner-scoped, coloured expense tag.
type Category struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c Category) RecordID() string    { return c.ID }
func (c Category) RecordOwner() string { return c.Owner }

// Expense is a single owner-scoped spending entry. Category holds a category
// name, not an id, and may outlive the category it names.
type Expense struct {
	ID        string          `json:"id"`
	Owner     string          `json:"owner"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Date      Date            `json:"date"`
	Note      string          `json:"note"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (e Expense) RecordID() string    { return e.ID }
func (e Expense) RecordOwner() string { return e.Owner }
