// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// UserID represents the internal user identifier (UUID in string form).
type UserID string

// IsValid checks that the user ID is a well-formed UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a validated UserID.
func NewUserID(id string) (UserID, error) {
	uid := UserID(id)
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "user ID must be a UUID")
	}
	return uid, nil
}

// QuestionID identifies a practice question in the external catalog.
type QuestionID string

// IsValid checks that the question ID is non-empty.
func (q QuestionID) IsValid() bool {
	return len(q) > 0 && len(q) <= 100
}

// String returns the string representation.
func (q QuestionID) String() string {
	return string(q)
}

// TopicID identifies a topic in the external catalog.
type TopicID string

// IsValid checks that the topic ID is non-empty.
func (t TopicID) IsValid() bool {
	return len(t) > 0 && len(t) <= 100
}

// String returns the string representation.
func (t TopicID) String() string {
	return string(t)
}

// NodeID identifies a skill node in the skill tree catalog.
type NodeID string

// IsValid checks that the node ID is non-empty.
func (n NodeID) IsValid() bool {
	return len(n) > 0 && len(n) <= 100
}

// String returns the string representation.
func (n NodeID) String() string {
	return string(n)
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a user. XP is monotonic: the
// engine only ever grants, never revokes.
type XP int

// XPPerLevel is the fixed width of one level band.
const XPPerLevel = 250

// MinXP is the lower XP boundary.
const MinXP XP = 0

// IsValid checks if the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= MinXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds XP and returns the result.
func (x XP) Add(amount int) XP {
	return XP(int(x) + amount)
}

// Level calculates the level from XP: floor(xp/250) + 1.
// Level is always derived from XP; any stored level is a read cache only.
func (x XP) Level() Level {
	if x < 0 {
		return MinLevel
	}
	return Level(int(x)/XPPerLevel + 1)
}

// ProgressPercent returns progress within the current level band as a
// percentage in [0, 100).
func (x XP) ProgressPercent() float64 {
	level := x.Level()
	floor := level.FloorXP()
	ceil := level.CeilXP()
	return float64(int(x)-floor) / float64(ceil-floor) * 100
}

// NewXP creates a new XP value with validation.
func NewXP(amount int) (XP, error) {
	if amount < int(MinXP) {
		return 0, NewDomainError("shared", "NewXP", ErrNegativeValue, "XP cannot be negative")
	}
	return XP(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a user's level, always derived from XP.
type Level int

// MinLevel is the starting level (0 XP).
const MinLevel Level = 1

// IsValid checks if the level is at least the minimum.
func (l Level) IsValid() bool {
	return l >= MinLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// FloorXP returns the total XP at which this level begins.
func (l Level) FloorXP() int {
	if l <= MinLevel {
		return 0
	}
	return (int(l) - 1) * XPPerLevel
}

// CeilXP returns the total XP at which the next level begins.
func (l Level) CeilXP() int {
	return int(l) * XPPerLevel
}

// ═══════════════════════════════════════════════════════════════════════════
// Rank Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Rank represents a user's position in the XP leaderboard.
type Rank int

const (
	MinRank  Rank = 1
	Unranked Rank = 0 // Not yet ranked
)

// IsValid checks if the rank is valid.
func (r Rank) IsValid() bool {
	return r >= MinRank
}

// Int returns the underlying int value.
func (r Rank) Int() int {
	return int(r)
}

// IsUnranked checks if the user is not yet ranked.
func (r Rank) IsUnranked() bool {
	return r == Unranked
}

// IsTop returns true if the rank is in the top N.
func (r Rank) IsTop(n int) bool {
	return r.IsValid() && int(r) <= n
}

// ═══════════════════════════════════════════════════════════════════════════
// Time Range
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents an inclusive-exclusive time interval [From, To).
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks that From precedes To.
func (t TimeRange) IsValid() bool {
	return t.From.Before(t.To)
}

// Duration returns the length of the range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks whether the given time falls inside the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return !tm.Before(t.From) && tm.Before(t.To)
}

// LastNDays returns a range covering the last n calendar days up to now.
func LastNDays(n int) TimeRange {
	now := time.Now().UTC()
	return TimeRange{From: now.AddDate(0, 0, -n), To: now}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination
// ═══════════════════════════════════════════════════════════════════════════

// Pagination contains paging parameters for list queries.
type Pagination struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the page.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Limit returns the page size, defaulting when unset.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return 50
	}
	return p.PageSize
}

// DefaultPagination returns the default first page.
func DefaultPagination() Pagination {
	return Pagination{Page: 1, PageSize: 50}
}
