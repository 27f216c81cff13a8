package yocto

import (
	"fmt"
	"sort"

	"github.com/hupe1980/yocto/internal/segment/index"
)

// IndexOption declares which query operations a field supports.
type IndexOption int

const (
	// Filterable fields support value filters and accept several values
	// per document.
	Filterable IndexOption = iota
	// FilterableTrie is Filterable with a front-coded dictionary, suited to
	// values sharing long prefixes such as paths or URLs. The length option
	// of such fields is ignored.
	FilterableTrie
	// Sortable fields hold exactly one value per document and support
	// filters, ordering and value lookup.
	Sortable
	// Full is equivalent to Sortable.
	Full
)

func (o IndexOption) String() string {
	switch o {
	case Filterable:
		return "filterable"
	case FilterableTrie:
		return "filterable-trie"
	case Sortable:
		return "sortable"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("IndexOption(%d)", int(o))
	}
}

// ParseIndexOption parses the String form of an index option.
func ParseIndexOption(s string) (IndexOption, error) {
	for o := Filterable; o <= Full; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown index option %q", ErrMalformed, s)
}

func (o IndexOption) kind() index.Kind {
	switch o {
	case FilterableTrie:
		return index.Trie
	case Sortable, Full:
		return index.Full
	default:
		return index.Filterable
	}
}

// singleValued reports whether the option allows exactly one value per
// document.
func (o IndexOption) singleValued() bool { return o == Sortable || o == Full }

// LengthOption selects the physical encoding of a field's values.
type LengthOption int

const (
	// Variable allows values of differing lengths.
	Variable LengthOption = iota
	// Fixed requires every value of the field to share one length.
	Fixed
)

func (o LengthOption) String() string {
	switch o {
	case Variable:
		return "variable"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("LengthOption(%d)", int(o))
	}
}

// ParseLengthOption parses the String form of a length option.
func ParseLengthOption(s string) (LengthOption, error) {
	switch s {
	case "variable", "":
		return Variable, nil
	case "fixed":
		return Fixed, nil
	default:
		return 0, fmt.Errorf("%w: unknown length option %q", ErrMalformed, s)
	}
}

// Field is one named, indexed attribute of a document.
type Field struct {
	Name   string
	Values []Value
	Index  IndexOption
	Length LengthOption
}

// Document collects the fields and payload of one document before it is
// merged into a DatabaseBuilder. Documents are not safe for concurrent use.
type Document struct {
	fields  map[string]*Field
	payload []byte
	err     error
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{fields: make(map[string]*Field)}
}

// With adds values to the field name. Repeated calls for one name append
// values and must repeat the same options; the first violation is kept and
// reported by Validate and Merge.
func (d *Document) With(name string, idx IndexOption, length LengthOption, values ...Value) *Document {
	if d.err != nil {
		return d
	}
	if f, ok := d.fields[name]; ok {
		if f.Index != idx || f.Length != length {
			d.err = &FieldError{Field: name, cause: fmt.Errorf("%w: declared %s/%s, then %s/%s",
				ErrMalformed, f.Index, f.Length, idx, length)}
			return d
		}
		f.Values = append(f.Values, values...)
		return d
	}
	d.fields[name] = &Field{
		Name:   name,
		Values: append([]Value(nil), values...),
		Index:  idx,
		Length: length,
	}
	return d
}

// WithPayload sets the opaque payload stored for the document. A document
// without a payload stores an empty one.
func (d *Document) WithPayload(p []byte) *Document {
	d.payload = p
	return d
}

// Payload returns the payload set with WithPayload.
func (d *Document) Payload() []byte { return d.payload }

// Fields returns the fields sorted by name.
func (d *Document) Fields() []*Field {
	out := make([]*Field, 0, len(d.fields))
	for _, f := range d.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Field returns the field called name.
func (d *Document) Field(name string) (*Field, bool) {
	f, ok := d.fields[name]
	return f, ok
}

// Validate checks that the document is structurally well formed: every
// field has a non-empty name and at least one value, and single-valued
// fields carry exactly one value.
func (d *Document) Validate() error {
	if d.err != nil {
		return d.err
	}
	for _, f := range d.Fields() {
		if f.Name == "" {
			return fmt.Errorf("%w: empty field name", ErrMalformed)
		}
		if f.Index < Filterable || f.Index > Full {
			return &FieldError{Field: f.Name, cause: fmt.Errorf("%w: unknown index option %d", ErrMalformed, int(f.Index))}
		}
		if f.Length != Fixed && f.Length != Variable {
			return &FieldError{Field: f.Name, cause: fmt.Errorf("%w: unknown length option %d", ErrMalformed, int(f.Length))}
		}
		if len(f.Values) == 0 {
			return &FieldError{Field: f.Name, cause: fmt.Errorf("%w: no values", ErrMalformed)}
		}
		if f.Index.singleValued() && len(f.Values) != 1 {
			return &FieldError{Field: f.Name, cause: fmt.Errorf("%w: %s field takes one value, got %d",
				ErrMalformed, f.Index, len(f.Values))}
		}
	}
	return nil
}
