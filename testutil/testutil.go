package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	_, _ = r.rand.Read(b)
	return b
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
// s=1.0 gives standard Zipf, s=1.5 gives heavy-tail (80/20 rule).
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1 // 0-indexed
		}
	}

	return n - 1
}

// Categories is the vocabulary of Record.Category, most frequent first.
var Categories = []string{"books", "music", "games", "tools", "garden", "toys", "food", "sports"}

// Tags is the vocabulary of Record.Tags.
var Tags = []string{"new", "sale", "eco", "gift", "kids", "pro", "retro", "limited", "bulk", "local"}

var pathSegments = []string{"api", "web", "static", "v1", "v2", "users", "orders", "items", "img", "docs"}

// Record is a synthetic document.
type Record struct {
	// Category is Zipf-distributed over Categories.
	Category string
	// Tags holds one to three distinct tags in ascending order.
	Tags []string
	// Score repeats often, so orderings have ties.
	Score int32
	// Path is a slash-separated path sharing prefixes with other records.
	Path string
	// Payload is opaque and may be empty.
	Payload []byte
}

// Records generates n reproducible records.
func (r *RNG) Records(n int) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, n)
	for i := range out {
		rec := Record{
			Category: Categories[r.zipfLocked(len(Categories), 1.2)],
			Score:    int32(r.rand.Intn(41) - 20),
		}

		ntags := 1 + r.rand.Intn(3)
		seen := map[string]bool{}
		for len(rec.Tags) < ntags {
			t := Tags[r.rand.Intn(len(Tags))]
			if !seen[t] {
				seen[t] = true
				rec.Tags = append(rec.Tags, t)
			}
		}
		sort.Strings(rec.Tags)

		depth := 1 + r.rand.Intn(3)
		parts := make([]string, depth)
		for d := range parts {
			parts[d] = pathSegments[r.rand.Intn(len(pathSegments))]
		}
		rec.Path = "/" + strings.Join(parts, "/")

		if r.rand.Intn(10) > 0 {
			rec.Payload = []byte(fmt.Sprintf(`{"id":%d,"category":%q}`, i, rec.Category))
		}
		out[i] = rec
	}
	return out
}

// Select returns the ids of records matching pred, ascending.
func Select(records []Record, pred func(Record) bool) []int {
	out := []int{}
	for id, rec := range records {
		if pred(rec) {
			out = append(out, id)
		}
	}
	return out
}

// SortIDs stably sorts ids by less, which sees record ids. Ties keep
// ascending id order when ids start ascending.
func SortIDs(ids []int, less func(a, b int) bool) []int {
	out := append([]int(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
