package templating

import (
	"fmt"
	"maps"
	"slices"
)

// sourceKind tags the backing representation of Variables.
type sourceKind uint8

const (
	emptySource sourceKind = iota
	stringMapSource
	documentSource
)

// Variables maps variable names to definitions. It is a closed union
// of two backings: a plain string map, or a decoded key/value
// document whose top level is an object and whose substituted values
// must be strings. The zero value defines nothing.
//
// Variables is read-only after construction and safe for concurrent
// use.
type Variables struct {
	kind sourceKind
	strs map[string]string
	doc  map[string]any
}

// StringMap returns Variables backed by a copy of m.
func StringMap(m map[string]string) Variables {
	return Variables{
		kind: stringMapSource,
		strs: maps.Clone(m),
	}
}

// Document returns Variables backed by a decoded document such as
// the result of unmarshalling JSON or YAML into an interface value.
// The top level must be a string-keyed object. Leaves are checked on
// lookup: a non-string leaf is reported as ErrNotString rather than
// ErrUndefined.
func Document(v any) (Variables, error) {
	const errCtx = "building variable document"

	switch doc := v.(type) {
	case map[string]any:
		return Variables{
			kind: documentSource,
			doc:  maps.Clone(doc),
		}, nil

	case map[string]string:
		return StringMap(doc), nil

	default:
		return Variables{}, fmt.Errorf(
			"%s: %w: got %T", errCtx, ErrNotObject, v,
		)
	}
}

// Has reports whether name is defined, whatever the type of its
// value.
func (v Variables) Has(name string) bool {
	switch v.kind {
	case stringMapSource:
		_, ok := v.strs[name]

		return ok

	case documentSource:
		_, ok := v.doc[name]

		return ok

	default:
		return false
	}
}

// Lookup returns the string definition of name. It fails with
// ErrUndefined when name is absent and with ErrNotString when a
// document value is not a string.
func (v Variables) Lookup(name string) (string, error) {
	switch v.kind {
	case stringMapSource:
		if val, ok := v.strs[name]; ok {
			return val, nil
		}

	case documentSource:
		raw, ok := v.doc[name]
		if !ok {
			break
		}

		val, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf(
				"%w: %q holds %T", ErrNotString, name, raw,
			)
		}

		return val, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUndefined, name)
}

// Names returns the defined names in sorted order.
func (v Variables) Names() []string {
	switch v.kind {
	case stringMapSource:
		return slices.Sorted(maps.Keys(v.strs))
	case documentSource:
		return slices.Sorted(maps.Keys(v.doc))
	default:
		return nil
	}
}

// Len returns the number of defined names.
func (v Variables) Len() int {
	switch v.kind {
	case stringMapSource:
		return len(v.strs)
	case documentSource:
		return len(v.doc)
	default:
		return 0
	}
}

// Merge returns a new source holding the definitions of base
// overridden by those of over. The result stays a string map when
// both inputs are string maps (or empty), otherwise it is a
// document.
func Merge(base, over Variables) Variables {
	if base.kind != documentSource && over.kind != documentSource {
		out := make(map[string]string, base.Len()+over.Len())
		maps.Copy(out, base.strs)
		maps.Copy(out, over.strs)

		return Variables{kind: stringMapSource, strs: out}
	}

	out := make(map[string]any, base.Len()+over.Len())

	for _, src := range []Variables{base, over} {
		for k, val := range src.strs {
			out[k] = val
		}

		maps.Copy(out, src.doc)
	}

	return Variables{kind: documentSource, doc: out}
}
