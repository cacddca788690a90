package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a gorm query before it runs. Repositories accept a
// variadic list of them on every read path.
type QueryOption interface {
	Apply(tx *gorm.DB) *gorm.DB
}

// LockingUpdate is a gorm scope adding FOR UPDATE. It is a no-op on sqlite,
// which serializes writers on its own and rejects the clause.
func LockingUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

type withLockingUpdate struct{}

func (withLockingUpdate) Apply(tx *gorm.DB) *gorm.DB { return LockingUpdate(tx) }

func WithLockingUpdate() QueryOption { return withLockingUpdate{} }

// WithSortBy orders results. Allow whitelists sortable columns; a column
// outside the whitelist falls back to the first allowed one.
type WithSortBy struct {
	SortBy  string
	OrderBy string
	Allow   []string
}

func (o WithSortBy) Apply(tx *gorm.DB) *gorm.DB {
	col := o.SortBy
	allowed := false
	for _, a := range o.Allow {
		if a == col {
			allowed = true
			break
		}
	}
	if !allowed {
		if len(o.Allow) == 0 {
			return tx
		}
		col = o.Allow[0]
	}

	dir := "ASC"
	if strings.EqualFold(o.OrderBy, "desc") {
		dir = "DESC"
	}
	return tx.Order(fmt.Sprintf("%s %s", col, dir))
}

// ApplyOperator adds a single WHERE predicate. Operator is one of
// "=", "!=", ">", ">=", "<", "<=", "IN", "LIKE".
type ApplyOperator struct {
	Field    string
	Operator string
	Value    any
}

func (o ApplyOperator) Apply(tx *gorm.DB) *gorm.DB {
	op := o.Operator
	if op == "" {
		op = "="
	}
	switch strings.ToUpper(op) {
	case "IN":
		return tx.Where(fmt.Sprintf("%s IN ?", o.Field), o.Value)
	case "LIKE":
		return tx.Where(fmt.Sprintf("%s LIKE ?", o.Field), o.Value)
	default:
		return tx.Where(fmt.Sprintf("%s %s ?", o.Field, op), o.Value)
	}
}

type withLimit struct{ n int }

func (o withLimit) Apply(tx *gorm.DB) *gorm.DB { return tx.Limit(o.n) }

func WithLimit(n int) QueryOption { return withLimit{n: n} }

type withOffset struct{ n int }

func (o withOffset) Apply(tx *gorm.DB) *gorm.DB { return tx.Offset(o.n) }

func WithOffset(n int) QueryOption { return withOffset{n: n} }
