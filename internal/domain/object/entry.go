package object

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kailas-cloud/obstore/internal/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Payload is the typed body of an observability object.
type Payload interface {
	ObjectType() Type
}

// ParseFunc decodes a raw JSON payload.
type ParseFunc func(raw []byte) (Payload, error)

// SerializeFunc encodes a payload to raw JSON.
type SerializeFunc func(p Payload) ([]byte, error)

// ValidateFunc reports whether a payload has the concrete shape of its entry.
type ValidateFunc func(p Payload) bool

// Entry is the registration of one object type.
type Entry struct {
	Type      Type
	Parse     ParseFunc
	Serialize SerializeFunc
	Validate  ValidateFunc

	// TextFields and KeywordFields are payload field names searchable by the query builder.
	TextFields    []string
	KeywordFields []string

	// Untagged marks the type stored without a discriminator in the legacy index.
	Untagged bool
}

// NewJSONEntry builds an Entry for the payload *T. Raw payloads are checked
// against schemas/<tag>.json before decoding.
func NewJSONEntry[T any, P interface {
	*T
	Payload
}](t Type, textFields, keywordFields []string) (Entry, error) {
	schema, err := loadSchema(t)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Type: t,
		Parse: func(raw []byte) (Payload, error) {
			if err := validateSchema(schema, raw); err != nil {
				return nil, fmt.Errorf("%s payload: %w", t, err)
			}
			p := P(new(T))
			if err := json.Unmarshal(raw, p); err != nil {
				return nil, fmt.Errorf("decode %s payload: %w: %w", t, domain.ErrMalformedDocument, err)
			}
			return p, nil
		},
		Serialize: func(p Payload) ([]byte, error) {
			v, ok := p.(P)
			if !ok || v == nil {
				return nil, fmt.Errorf("serialize %s: unexpected payload %T: %w", t, p, domain.ErrInvariantViolation)
			}
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s payload: %w", t, err)
			}
			return data, nil
		},
		Validate: func(p Payload) bool {
			v, ok := p.(P)
			return ok && v != nil
		},
		TextFields:    textFields,
		KeywordFields: keywordFields,
	}, nil
}

func loadSchema(t Type) (*gojsonschema.Schema, error) {
	src, err := schemaFS.ReadFile("schemas/" + t.Tag() + ".json")
	if err != nil {
		return nil, fmt.Errorf("read %s schema: %w", t, err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(src))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", t, err)
	}
	return schema, nil
}

func validateSchema(schema *gojsonschema.Schema, raw []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.Field()+": "+e.Description())
	}
	return fmt.Errorf("%w: %s", domain.ErrMalformedDocument, strings.Join(msgs, "; "))
}
