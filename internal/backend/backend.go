// Package backend describes the hosted data service the storefront talks to:
// an identity provider, table reads and writes, named procedures and table
// change notifications. Rows are loosely typed and get normalized by callers.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Row map[string]any

type Operator string

const (
	OpEq    Operator = "="
	OpILike Operator = "ILIKE"
	OpAny   Operator = "OR"
)

// Filter restricts a column. The zero Op compares for equality. An OpAny
// filter holds alternatives in Any instead of a column.
type Filter struct {
	Column string
	Op     Operator
	Value  any
	Any    []Filter
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// ILike matches column case-insensitively against a LIKE pattern.
func ILike(column string, pattern string) Filter {
	return Filter{Column: column, Op: OpILike, Value: pattern}
}

// AnyOf matches rows passing at least one of filters.
func AnyOf(filters ...Filter) Filter {
	return Filter{Op: OpAny, Any: filters}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains builds a LIKE pattern matching term anywhere, with the wildcards
// inside term escaped.
func Contains(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

type Query struct {
	Table   string
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// RemoteError is the structured error returned by the data service. Message is
// passed to users unmodified.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (code=%s)", e.Message, e.Code)
}

type Tables interface {
	Select(c context.Context, q Query) ([]Row, error)
	SelectOne(c context.Context, q Query) (Row, error)
	Insert(c context.Context, table string, row Row) (Row, error)
	Update(c context.Context, table string, filters []Filter, values Row) ([]Row, error)
}

type Procedures interface {
	Call(c context.Context, name string, args map[string]any) (any, error)
}

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

type Change struct {
	Table     string     `json:"table"`
	Type      ChangeType `json:"type"`
	Record    Row        `json:"record"`
	OldRecord Row        `json:"old_record"`
}

// Realtime delivers table changes to fn until c is done.
type Realtime interface {
	Subscribe(c context.Context, table string, fn func(Change)) error
}

type Session struct {
	UserID        uuid.UUID         `json:"userId"`
	Email         string            `json:"email"`
	EmailVerified bool              `json:"emailVerified"`
	Profile       map[string]string `json:"profile"`
}

type AuthEventType string

const (
	AuthSignedIn  AuthEventType = "signed_in"
	AuthSignedOut AuthEventType = "signed_out"
)

type AuthEvent struct {
	Type   AuthEventType `json:"type"`
	UserID uuid.UUID     `json:"userId"`
	At     time.Time     `json:"at"`
}

// IdentityProvider resolves the signed in user. CurrentSession answers from
// what the request already carries, RefreshSession goes back to the store.
type IdentityProvider interface {
	CurrentSession(c context.Context) (Session, bool)
	RefreshSession(c context.Context) (Session, error)
	OnAuthChange(c context.Context, fn func(AuthEvent)) (unsubscribe func(), err error)
}
