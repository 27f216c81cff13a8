package yocto

import (
	"context"
	"slices"
	"time"

	"github.com/hupe1980/yocto/internal/segment/index"
)

// ctxCheckInterval is how many emitted or visited documents pass between
// cancellation checks.
const ctxCheckInterval = 1024

// Execute evaluates q and returns the matching document ids.
//
// Without ordering, documents come in ascending id order. With ordering,
// the first ordering field's index is walked in value order, restricted to
// the candidates. Skip and Limit apply after ordering.
func (db *Database) Execute(ctx context.Context, q *Query) ([]int, error) {
	start := time.Now()
	matched := 0
	out, err := db.execute(ctx, q, &matched)
	db.opts.metricsCollector.RecordQuery(matched, time.Since(start), err)
	db.opts.logger.LogQuery(ctx, matched, len(out), time.Since(start), err)
	return out, err
}

// Count returns how many documents satisfy the conditions of q. Ordering
// and pagination are ignored.
func (db *Database) Count(ctx context.Context, q *Query) (int, error) {
	start := time.Now()
	n, err := db.count(ctx, q)
	db.opts.metricsCollector.RecordQuery(n, time.Since(start), err)
	db.opts.logger.LogQuery(ctx, n, 0, time.Since(start), err)
	return n, err
}

func (db *Database) count(ctx context.Context, q *Query) (int, error) {
	candidates, err := db.candidates(ctx, q)
	if err != nil {
		return 0, err
	}
	defer putDocSet(candidates)
	return candidates.Len(), nil
}

func (db *Database) candidates(ctx context.Context, q *Query) (*DocSet, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := getDocSet()
	if err := andCond(q.where).eval(db, s.rb); err != nil {
		putDocSet(s)
		return nil, err
	}
	return s, nil
}

type orderIndex struct {
	*index.Index
	desc bool
}

func (db *Database) orderIndexes(q *Query) ([]orderIndex, error) {
	out := make([]orderIndex, 0, len(q.orders))
	for _, o := range q.orders {
		idx, err := db.index(o.field)
		if err != nil {
			return nil, err
		}
		if !idx.Sortable() {
			return nil, &FieldError{Field: o.field, cause: ErrNotSortable}
		}
		out = append(out, orderIndex{Index: idx, desc: o.dir == Desc})
	}
	return out, nil
}

func (db *Database) execute(ctx context.Context, q *Query, matched *int) ([]int, error) {
	orders, err := db.orderIndexes(q)
	if err != nil {
		return nil, err
	}
	candidates, err := db.candidates(ctx, q)
	if err != nil {
		return nil, err
	}
	defer putDocSet(candidates)
	*matched = candidates.Len()

	p := newPager(q.skip, q.limit)
	if p.done() {
		return []int{}, nil
	}

	switch {
	case len(orders) == 0:
		err = walkCandidates(ctx, candidates, p)
	case candidates.Len()*8 < db.docs:
		err = sortCandidates(ctx, candidates, orders, p)
	default:
		err = walkIndex(ctx, candidates, orders, p)
	}
	if err != nil {
		return nil, err
	}
	return p.out, nil
}

// pager applies skip and limit to an ordered stream of documents.
type pager struct {
	skip  int
	limit int
	seen  int
	out   []int
}

func newPager(skip, limit int) *pager {
	return &pager{skip: skip, limit: limit, out: []int{}}
}

func (p *pager) done() bool { return p.limit >= 0 && len(p.out) >= p.limit }

// emit offers the next ordered document and reports whether more are wanted.
func (p *pager) emit(doc int) bool {
	p.seen++
	if p.seen > p.skip {
		p.out = append(p.out, doc)
	}
	return !p.done()
}

func walkCandidates(ctx context.Context, candidates *DocSet, p *pager) error {
	var err error
	n := 0
	candidates.ForEach(func(doc int) bool {
		if n++; n%ctxCheckInterval == 0 {
			if err = ctx.Err(); err != nil {
				return false
			}
		}
		return p.emit(doc)
	})
	return err
}

// compareTies orders two documents sharing the primary value by the
// remaining orderings, then by id.
func compareTies(a, b int, orders []orderIndex) int {
	for _, o := range orders {
		va, _ := o.ValueIndexOf(a)
		vb, _ := o.ValueIndexOf(b)
		if va == vb {
			continue
		}
		if (va < vb) != o.desc {
			return -1
		}
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// sortCandidates sorts a small candidate set by looking up each document's
// dictionary indexes instead of walking the whole primary index.
func sortCandidates(ctx context.Context, candidates *DocSet, orders []orderIndex, p *pager) error {
	docs := candidates.ToSlice()
	if err := ctx.Err(); err != nil {
		return err
	}
	slices.SortFunc(docs, func(a, b int) int { return compareTies(a, b, orders) })
	for _, doc := range docs {
		if !p.emit(doc) {
			break
		}
	}
	return nil
}

// walkIndex traverses the primary index in value order, keeping candidates
// and sorting each group of equal primary values by the tie-breakers.
func walkIndex(ctx context.Context, candidates *DocSet, orders []orderIndex, p *pager) error {
	primary, rest := orders[0], orders[1:]
	var (
		group   []int
		err     error
		visited int
	)
	dict := primary.Dictionary().Len()
	for k := 0; k < dict; k++ {
		i := k
		if primary.desc {
			i = dict - 1 - k
		}
		group = group[:0]
		primary.Documents(i, func(doc int) bool {
			if visited++; visited%ctxCheckInterval == 0 {
				if err = ctx.Err(); err != nil {
					return false
				}
			}
			if candidates.Contains(doc) {
				group = append(group, doc)
			}
			return true
		})
		if err != nil {
			return err
		}
		if len(rest) > 0 && len(group) > 1 {
			slices.SortFunc(group, func(a, b int) int { return compareTies(a, b, rest) })
		}
		for _, doc := range group {
			if !p.emit(doc) {
				return nil
			}
		}
	}
	return nil
}
