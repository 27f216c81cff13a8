package index

import (
	"fmt"

	"github.com/hupe1980/yocto/internal/errs"
	"github.com/hupe1980/yocto/internal/hash"
	"github.com/hupe1980/yocto/internal/relation"
	"github.com/hupe1980/yocto/internal/segment"
	"github.com/hupe1980/yocto/internal/sortedset"
)

// Kind selects the capabilities of an index segment.
type Kind int

const (
	// Filterable indexes support value filters only and allow many values
	// per document.
	Filterable Kind = iota
	// Trie is a filterable index whose dictionary is front-coded for
	// prefix-heavy values. Its length option is ignored.
	Trie
	// Full indexes hold exactly one value per document and additionally
	// support ordering and document to value lookup.
	Full
)

func (k Kind) String() string {
	switch k {
	case Filterable:
		return "filterable"
	case Trie:
		return "trie"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Builder accumulates one field's values across documents.
//
// Documents must arrive in strictly increasing id order. Full indexes
// additionally require gapless ids starting at 0, since every document owns
// exactly one value. A Builder is not safe for concurrent mutation.
type Builder struct {
	name   string
	kind   Kind
	fixed  bool
	digest hash.Algorithm

	values   *sortedset.Set
	byValue  [][]int32 // provisional value id -> documents, ascending
	docValue []int32   // Full only: document -> provisional value id
	lastDoc  int
	docs     int
	hint     int
	frozen   bool
}

// NewBuilder returns a builder for field name.
func NewBuilder(name string, kind Kind, fixed bool, digest hash.Algorithm) *Builder {
	enc := sortedset.Variable
	switch {
	case kind == Trie:
		enc = sortedset.Prefix
		fixed = false
	case fixed:
		enc = sortedset.Fixed
	}
	return &Builder{
		name:    name,
		kind:    kind,
		fixed:   fixed,
		digest:  digest,
		values:  sortedset.New(enc),
		lastDoc: -1,
	}
}

// Name returns the field name.
func (b *Builder) Name() string { return b.name }

// Kind returns the index kind.
func (b *Builder) Kind() Kind { return b.kind }

// Fixed reports whether values use the fixed length encoding.
func (b *Builder) Fixed() bool { return b.fixed }

// Documents returns the number of documents added.
func (b *Builder) Documents() int { return b.docs }

// Code returns the segment type code the builder serializes to.
func (b *Builder) Code() segment.Code {
	switch {
	case b.kind == Trie:
		return segment.CodeTrie
	case b.kind == Full && b.fixed:
		return segment.CodeFullFixed
	case b.kind == Full:
		return segment.CodeFullVariable
	case b.fixed:
		return segment.CodeFilterableFixed
	default:
		return segment.CodeFilterableVariable
	}
}

// SetDocumentsCount passes the database documents count before freeze. It
// bounds the document domain of the value relation and lets a full index
// verify that every document supplied a value.
func (b *Builder) SetDocumentsCount(n int) { b.hint = n }

// Check reports whether AddDocument(doc, values) would succeed without
// changing any state.
func (b *Builder) Check(doc int, values [][]byte) error {
	if b.frozen {
		return fmt.Errorf("field %q: %w", b.name, errs.ErrFrozen)
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: field %q has no values", errs.ErrMalformed, b.name)
	}
	if b.kind == Full {
		if len(values) != 1 {
			return fmt.Errorf("%w: field %q takes exactly one value per document, got %d", errs.ErrMalformed, b.name, len(values))
		}
		if doc != b.lastDoc+1 {
			return fmt.Errorf("%w: field %q expects document %d, got %d", errs.ErrMalformed, b.name, b.lastDoc+1, doc)
		}
	} else if doc <= b.lastDoc || doc < 0 {
		return fmt.Errorf("%w: field %q got document %d after %d", errs.ErrMalformed, b.name, doc, b.lastDoc)
	}

	if b.fixed {
		size := b.values.ElementSize()
		if size < 0 {
			size = len(values[0])
		}
		for _, v := range values {
			if len(v) != size {
				return fmt.Errorf("%w: field %q has fixed length %d, got %d", errs.ErrMalformed, b.name, size, len(v))
			}
		}
	}
	return nil
}

// AddDocument indexes values for doc. On error nothing is changed.
func (b *Builder) AddDocument(doc int, values [][]byte) error {
	if err := b.Check(doc, values); err != nil {
		return err
	}
	for _, v := range values {
		id, err := b.values.Add(v)
		if err != nil {
			return err
		}
		if id == len(b.byValue) {
			b.byValue = append(b.byValue, nil)
		}
		docs := b.byValue[id]
		// repeated values within one document relate it once
		if n := len(docs); n == 0 || docs[n-1] != int32(doc) {
			b.byValue[id] = append(docs, int32(doc))
		}
		if b.kind == Full {
			b.docValue = append(b.docValue, int32(id))
		}
	}
	b.lastDoc = doc
	b.docs++
	return nil
}

// BuildWritable freezes the builder and returns its serializable form.
// Further calls to AddDocument fail with ErrFrozen.
func (b *Builder) BuildWritable() (segment.Writable, error) {
	if b.kind == Full && b.hint > 0 && len(b.docValue) != b.hint {
		return nil, fmt.Errorf("%w: field %q has values for %d of %d documents", errs.ErrMalformed, b.name, len(b.docValue), b.hint)
	}
	b.frozen = true
	b.values.Freeze()

	valueToDocs := relation.NewMultiMapBuilder()
	valueToDocs.SetDomain(b.hint)
	for id, docs := range b.byValue {
		idx, err := b.values.Index(id)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if err := valueToDocs.Add(idx, int(doc)); err != nil {
				return nil, err
			}
		}
	}
	if err := valueToDocs.Freeze(); err != nil {
		return nil, fmt.Errorf("field %q: %w", b.name, err)
	}

	blocks := []segment.Block{b.values, valueToDocs}
	if b.kind == Full {
		docToValue := relation.NewMapBuilder()
		for doc, id := range b.docValue {
			idx, err := b.values.Index(int(id))
			if err != nil {
				return nil, err
			}
			if err := docToValue.Put(doc, idx); err != nil {
				return nil, err
			}
		}
		docToValue.Freeze()
		blocks = append(blocks, docToValue)
	}

	return segment.NewNamedFrame(b.Code(), b.name, b.digest, blocks...), nil
}
