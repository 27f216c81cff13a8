package yocto_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/yocto"
	"github.com/hupe1980/yocto/testutil"
)

type fruit struct {
	name  string
	color string
	price int32
	tags  []string
}

var fruits = []fruit{
	{"apple", "red", 3, []string{"fruit", "sweet"}},
	{"banana", "yellow", 1, []string{"fruit"}},
	{"cherry", "red", 5, []string{"fruit", "sweet", "small"}},
	{"date", "brown", 5, []string{"sweet"}},
	{"elderberry", "black", 2, []string{"small"}},
	{"fig", "purple", 3, []string{"sweet"}},
}

func fruitDB(t *testing.T) *yocto.Database {
	t.Helper()
	docs := make([]*yocto.Document, len(fruits))
	for i, f := range fruits {
		tags := make([]yocto.Value, len(f.tags))
		for j, tag := range f.tags {
			tags[j] = yocto.String(tag)
		}
		docs[i] = yocto.NewDocument().
			With("name", yocto.Full, yocto.Variable, yocto.String(f.name)).
			With("color", yocto.Filterable, yocto.Variable, yocto.String(f.color)).
			With("price", yocto.Sortable, yocto.Fixed, yocto.Int(f.price)).
			With("tags", yocto.FilterableTrie, yocto.Variable, tags...).
			WithPayload([]byte(f.name))
	}
	return openBytes(t, build(t, docs))
}

func TestExecute_Conditions(t *testing.T) {
	db := fruitDB(t)
	ctx := context.Background()
	str := yocto.String

	tests := []struct {
		name string
		cond yocto.Condition
		want []int
	}{
		{"eq", yocto.Eq("color", str("red")), []int{0, 2}},
		{"eq miss", yocto.Eq("color", str("green")), []int{}},
		{"eq on sortable", yocto.Eq("price", yocto.Int(5)), []int{2, 3}},
		{"in", yocto.In("color", str("red"), str("brown"), str("blue")), []int{0, 2, 3}},
		{"gt", yocto.Gt("price", yocto.Int(3)), []int{2, 3}},
		{"gte", yocto.Gte("price", yocto.Int(3)), []int{0, 2, 3, 5}},
		{"lt", yocto.Lt("price", yocto.Int(3)), []int{1, 4}},
		{"lte", yocto.Lte("price", yocto.Int(3)), []int{0, 1, 4, 5}},
		{"between", yocto.Between("price", yocto.Int(2), yocto.Int(3)), []int{0, 4, 5}},
		{"empty range", yocto.Between("price", yocto.Int(4), yocto.Int(2)), []int{}},
		{"prefix", yocto.Prefix("name", str("b")), []int{1}},
		{"prefix on trie", yocto.Prefix("tags", str("s")), []int{0, 2, 3, 4, 5}},
		{"and", yocto.And(yocto.Eq("tags", str("sweet")), yocto.Lt("price", yocto.Int(5))), []int{0, 5}},
		{"empty and", yocto.And(), []int{0, 1, 2, 3, 4, 5}},
		{"or", yocto.Or(yocto.Eq("color", str("red")), yocto.Eq("color", str("black"))), []int{0, 2, 4}},
		{"empty or", yocto.Or(), []int{}},
		{"not", yocto.Not(yocto.Eq("tags", str("fruit"))), []int{3, 4, 5}},
		{"nested", yocto.And(
			yocto.Or(yocto.Eq("color", str("red")), yocto.Eq("tags", str("small"))),
			yocto.Not(yocto.Gte("price", yocto.Int(5))),
		), []int{0, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Execute(ctx, yocto.Select().Where(tt.cond))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			n, err := db.Count(ctx, yocto.Select().Where(tt.cond))
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)
		})
	}
}

func TestExecute_WhereIsConjunction(t *testing.T) {
	db := fruitDB(t)
	got, err := db.Execute(context.Background(), yocto.Select().
		Where(yocto.Eq("tags", yocto.String("sweet"))).
		Where(yocto.Eq("color", yocto.String("red"))))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, got)
}

func TestExecute_Ordering(t *testing.T) {
	db := fruitDB(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query *yocto.Query
		want  []int
	}{
		{"no order is ascending id", yocto.Select(), []int{0, 1, 2, 3, 4, 5}},
		{"ties by id", yocto.Select().OrderBy("price", yocto.Asc), []int{1, 4, 0, 5, 2, 3}},
		{"desc keeps ties ascending", yocto.Select().OrderBy("price", yocto.Desc), []int{2, 3, 0, 5, 4, 1}},
		{"secondary asc", yocto.Select().OrderBy("price", yocto.Desc).OrderBy("name", yocto.Asc), []int{2, 3, 0, 5, 4, 1}},
		{"secondary desc", yocto.Select().OrderBy("price", yocto.Asc).OrderBy("name", yocto.Desc), []int{1, 4, 5, 0, 3, 2}},
		{"filtered", yocto.Select().Where(yocto.Eq("tags", yocto.String("sweet"))).OrderBy("price", yocto.Desc), []int{2, 3, 0, 5}},
		{"skip and limit after order", yocto.Select().OrderBy("price", yocto.Asc).Skip(2).Limit(3), []int{0, 5, 2}},
		{"skip past end", yocto.Select().OrderBy("price", yocto.Asc).Skip(10), []int{}},
		{"limit zero", yocto.Select().Limit(0), []int{}},
		{"limit without order", yocto.Select().Skip(1).Limit(2), []int{1, 2}},
		{"by name desc", yocto.Select().OrderBy("name", yocto.Desc), []int{5, 4, 3, 2, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Execute(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, tt.query.String())
		})
	}
}

func TestExecute_Errors(t *testing.T) {
	db := fruitDB(t)
	ctx := context.Background()

	_, err := db.Execute(ctx, yocto.Select().OrderBy("color", yocto.Asc))
	assert.ErrorIs(t, err, yocto.ErrNotSortable)
	_, err = db.Order("tags", yocto.Asc)
	assert.ErrorIs(t, err, yocto.ErrNotSortable)
	_, err = db.ValueOf("color", 0)
	assert.ErrorIs(t, err, yocto.ErrNotSortable)

	_, err = db.Execute(ctx, yocto.Select().Where(yocto.Eq("weight", yocto.Int(1))))
	assert.ErrorIs(t, err, yocto.ErrUnknownField)
	_, err = db.Execute(ctx, yocto.Select().OrderBy("weight", yocto.Asc))
	assert.ErrorIs(t, err, yocto.ErrUnknownField)
	_, err = db.Count(ctx, yocto.Select().Where(yocto.Not(yocto.Eq("weight", yocto.Int(1)))))
	assert.ErrorIs(t, err, yocto.ErrUnknownField)

	_, err = db.ValueOf("price", len(fruits))
	assert.ErrorIs(t, err, yocto.ErrOutOfRange)
	_, err = db.Payload(-1)
	assert.ErrorIs(t, err, yocto.ErrOutOfRange)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = db.Execute(canceled, yocto.Select())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_OrderStrategiesAgree(t *testing.T) {
	records := testutil.NewRNG(99).Records(400)
	db := openBytes(t, build(t, recordDocs(records)))
	ctx := context.Background()

	byScore := func(ids []int, desc bool) []int {
		return testutil.SortIDs(ids, func(a, b int) bool {
			if desc {
				return records[a].Score > records[b].Score
			}
			return records[a].Score < records[b].Score
		})
	}

	for _, c := range testutil.Categories {
		for _, dir := range []yocto.Direction{yocto.Asc, yocto.Desc} {
			want := byScore(testutil.Select(records, func(r testutil.Record) bool { return r.Category == c }), dir == yocto.Desc)
			got, err := db.Execute(ctx, yocto.Select().
				Where(yocto.Eq("category", yocto.String(c))).
				OrderBy("score", dir))
			require.NoError(t, err)
			assert.Equal(t, want, got, "category %s %s", c, dir)
		}
	}

	want := byScore(testutil.Select(records, func(r testutil.Record) bool { return r.Category != "books" }), false)
	got, err := db.Execute(ctx, yocto.Select().
		Where(yocto.Not(yocto.Eq("category", yocto.String("books")))).
		OrderBy("score", yocto.Asc).
		Limit(25))
	require.NoError(t, err)
	assert.Equal(t, want[:25], got)
}

func TestQuery_String(t *testing.T) {
	q := yocto.Select().
		Where(yocto.Eq("color", yocto.String("a")), yocto.Gte("price", yocto.String("b"))).
		OrderBy("price", yocto.Desc).
		Skip(1).
		Limit(2)
	assert.Equal(t, "SELECT WHERE (color = 61 AND price >= 62) ORDER BY price desc SKIP 1 LIMIT 2", q.String())
}
