package object

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"

	"github.com/kailas-cloud/obstore/internal/domain"
)

// Object pairs a type with its payload.
type Object struct {
	typ     Type
	payload Payload
}

// normalizer brings a payload to the form it has after a JSON round trip.
type normalizer interface {
	normalize()
}

// New validates and creates an Object. The payload must be the concrete
// variant of t unless t is TypeNone. Empty lists in p are reset to nil in place.
func New(t Type, p Payload) (Object, error) {
	if t == "" {
		t = TypeNone
	}
	if p == nil {
		return Object{}, fmt.Errorf("%s object without payload: %w", t, domain.ErrInvariantViolation)
	}
	if !t.IsNone() && p.ObjectType() != t {
		return Object{}, fmt.Errorf(
			"payload %s does not match type %s: %w", p.ObjectType(), t, domain.ErrInvariantViolation,
		)
	}
	if n, ok := p.(normalizer); ok {
		n.normalize()
	}
	return Object{typ: t, payload: p}, nil
}

// Type returns the discriminator.
func (o Object) Type() Type { return o.typ }

// Payload returns the typed payload.
func (o Object) Payload() Payload { return o.payload }

// IsZero reports whether o was never constructed.
func (o Object) IsZero() bool { return o.payload == nil }

// Clone returns a deep copy that shares no memory with o.
func (o Object) Clone() (Object, error) {
	var (
		p   Payload
		err error
	)
	switch src := o.payload.(type) {
	case nil:
		return o, nil
	case *Notebook:
		p, err = clonePayload(src)
	case *SavedQuery:
		p, err = clonePayload(src)
	case *SavedVisualization:
		p, err = clonePayload(src)
	case *OperationalPanel:
		p, err = clonePayload(src)
	default:
		// Foreign payloads under TypeNone are kept by reference.
		p = src
	}
	if err != nil {
		return Object{}, fmt.Errorf("clone %s: %w", o.typ, err)
	}
	return Object{typ: o.typ, payload: p}, nil
}

func clonePayload[T any](src *T) (*T, error) {
	dst := new(T)
	if err := deepcopy.Copy(dst, src); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by Clone
	}
	return dst, nil
}
