package yocto

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/yocto/internal/sortedset"
)

// Direction selects ascending or descending order.
type Direction int

const (
	// Asc orders by ascending unsigned byte order of values.
	Asc Direction = iota
	// Desc orders by descending value.
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Condition selects documents. Conditions are evaluated directly against
// the encoded dictionaries and relations of an open database.
type Condition interface {
	// eval adds the matching documents to dst.
	eval(db *Database, dst *roaring.Bitmap) error
	String() string
}

type eqCond struct {
	field string
	value Value
}

// Eq matches documents whose field holds v.
func Eq(field string, v Value) Condition { return eqCond{field: field, value: v} }

func (c eqCond) eval(db *Database, dst *roaring.Bitmap) error {
	idx, err := db.index(c.field)
	if err != nil {
		return err
	}
	idx.Filter(c.value, dst)
	return nil
}

func (c eqCond) String() string { return fmt.Sprintf("%s = %x", c.field, []byte(c.value)) }

type inCond struct {
	field  string
	values []Value
}

// In matches documents whose field holds any of vs.
func In(field string, vs ...Value) Condition { return inCond{field: field, values: vs} }

func (c inCond) eval(db *Database, dst *roaring.Bitmap) error {
	idx, err := db.index(c.field)
	if err != nil {
		return err
	}
	for _, v := range c.values {
		idx.Filter(v, dst)
	}
	return nil
}

func (c inCond) String() string { return fmt.Sprintf("%s in (%d values)", c.field, len(c.values)) }

// rangeCond matches dictionary values between two optional bounds.
type rangeCond struct {
	field          string
	lo, hi         Value
	hasLo, hasHi   bool
	loIncl, hiIncl bool
}

// Gt matches documents whose field holds a value greater than v.
func Gt(field string, v Value) Condition { return rangeCond{field: field, lo: v, hasLo: true} }

// Gte matches documents whose field holds a value greater than or equal to v.
func Gte(field string, v Value) Condition {
	return rangeCond{field: field, lo: v, hasLo: true, loIncl: true}
}

// Lt matches documents whose field holds a value less than v.
func Lt(field string, v Value) Condition { return rangeCond{field: field, hi: v, hasHi: true} }

// Lte matches documents whose field holds a value less than or equal to v.
func Lte(field string, v Value) Condition {
	return rangeCond{field: field, hi: v, hasHi: true, hiIncl: true}
}

// Between matches documents whose field holds a value in [lo, hi].
func Between(field string, lo, hi Value) Condition {
	return rangeCond{field: field, lo: lo, hi: hi, hasLo: true, hasHi: true, loIncl: true, hiIncl: true}
}

func (c rangeCond) bounds(d sortedset.Dictionary) (lo, hi int) {
	lo, hi = 0, d.Len()
	if c.hasLo {
		if c.loIncl {
			lo = d.LowerBound(c.lo)
		} else {
			lo = d.UpperBound(c.lo)
		}
	}
	if c.hasHi {
		if c.hiIncl {
			hi = d.UpperBound(c.hi)
		} else {
			hi = d.LowerBound(c.hi)
		}
	}
	return lo, hi
}

func (c rangeCond) eval(db *Database, dst *roaring.Bitmap) error {
	idx, err := db.index(c.field)
	if err != nil {
		return err
	}
	lo, hi := c.bounds(idx.Dictionary())
	if lo < hi {
		idx.FilterRange(lo, hi, dst)
	}
	return nil
}

func (c rangeCond) String() string {
	var b strings.Builder
	b.WriteString(c.field)
	if c.hasLo {
		op := ">"
		if c.loIncl {
			op = ">="
		}
		fmt.Fprintf(&b, " %s %x", op, []byte(c.lo))
	}
	if c.hasHi {
		op := "<"
		if c.hiIncl {
			op = "<="
		}
		fmt.Fprintf(&b, " %s %x", op, []byte(c.hi))
	}
	return b.String()
}

type prefixCond struct {
	field  string
	prefix Value
}

// Prefix matches documents whose field holds a value starting with p.
func Prefix(field string, p Value) Condition { return prefixCond{field: field, prefix: p} }

func (c prefixCond) eval(db *Database, dst *roaring.Bitmap) error {
	idx, err := db.index(c.field)
	if err != nil {
		return err
	}
	idx.FilterPrefix(c.prefix, dst)
	return nil
}

func (c prefixCond) String() string { return fmt.Sprintf("%s prefix %x", c.field, []byte(c.prefix)) }

type andCond []Condition

// And matches documents satisfying every condition. Operands are
// intersected smallest first. And of nothing matches every document.
func And(conds ...Condition) Condition { return andCond(conds) }

func (c andCond) eval(db *Database, dst *roaring.Bitmap) error {
	if len(c) == 0 {
		dst.AddRange(0, uint64(db.docs))
		return nil
	}
	sets := make([]*DocSet, 0, len(c))
	defer func() {
		for _, s := range sets {
			putDocSet(s)
		}
	}()
	for _, cond := range c {
		s := getDocSet()
		sets = append(sets, s)
		if err := cond.eval(db, s.rb); err != nil {
			return err
		}
	}
	smallest := 0
	for i, s := range sets {
		if s.rb.GetCardinality() < sets[smallest].rb.GetCardinality() {
			smallest = i
		}
	}
	sets[0], sets[smallest] = sets[smallest], sets[0]

	acc := getDocSet()
	defer putDocSet(acc)
	acc.rb.Or(sets[0].rb)
	for _, s := range sets[1:] {
		if acc.rb.IsEmpty() {
			return nil
		}
		acc.rb.And(s.rb)
	}
	dst.Or(acc.rb)
	return nil
}

func (c andCond) String() string { return join(c, " AND ") }

type orCond []Condition

// Or matches documents satisfying any condition. Or of nothing matches no
// document.
func Or(conds ...Condition) Condition { return orCond(conds) }

func (c orCond) eval(db *Database, dst *roaring.Bitmap) error {
	for _, cond := range c {
		if err := cond.eval(db, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c orCond) String() string { return join(c, " OR ") }

type notCond struct{ cond Condition }

// Not matches the documents cond does not match.
func Not(cond Condition) Condition { return notCond{cond: cond} }

func (c notCond) eval(db *Database, dst *roaring.Bitmap) error {
	s := getDocSet()
	defer putDocSet(s)
	if err := c.cond.eval(db, s.rb); err != nil {
		return err
	}
	s.rb.Flip(0, uint64(db.docs))
	dst.Or(s.rb)
	return nil
}

func (c notCond) String() string { return "NOT (" + c.cond.String() + ")" }

func join(conds []Condition, sep string) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

type ordering struct {
	field string
	dir   Direction
}

// Query is a conjunction of conditions with optional ordering and
// pagination. Build one with Select.
type Query struct {
	where  []Condition
	orders []ordering
	skip   int
	limit  int
}

// Select starts a query matching every document.
func Select() *Query {
	return &Query{limit: -1}
}

// Where adds conditions; all of them must hold.
func (q *Query) Where(conds ...Condition) *Query {
	q.where = append(q.where, conds...)
	return q
}

// OrderBy appends an ordering. The first ordering decides; later ones only
// break ties, and remaining ties are broken by ascending document id.
func (q *Query) OrderBy(field string, dir Direction) *Query {
	q.orders = append(q.orders, ordering{field: field, dir: dir})
	return q
}

// Skip drops the first n ordered results.
func (q *Query) Skip(n int) *Query {
	q.skip = max(n, 0)
	return q
}

// Limit caps the number of results. A negative n means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT")
	if len(q.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(andCond(q.where).String())
	}
	for i, o := range q.orders {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", o.field, o.dir)
	}
	if q.skip > 0 {
		fmt.Fprintf(&b, " SKIP %d", q.skip)
	}
	if q.limit >= 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	return b.String()
}
