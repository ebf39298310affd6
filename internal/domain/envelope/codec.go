package envelope

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/obstore/internal/domain"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	"github.com/kailas-cloud/obstore/internal/domain/object"
)

// Codec converts documents to and from their persisted JSON form.
type Codec struct {
	registry *object.Registry
	logger   *zap.Logger
}

// NewCodec creates a Codec over the given registry. logger may be nil.
func NewCodec(registry *object.Registry, logger *zap.Logger) *Codec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{registry: registry, logger: logger}
}

// Registry returns the type registry the codec resolves payloads with.
func (c *Codec) Registry() *object.Registry { return c.registry }

// Parse decodes a stored document. Unknown top-level fields are skipped.
func (c *Codec) Parse(raw []byte) (Doc, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return Doc{}, err
	}

	updated, err := requiredMillis(fields, FieldUpdatedTime)
	if err != nil {
		return Doc{}, err
	}
	created, err := requiredMillis(fields, FieldCreatedTime)
	if err != nil {
		return Doc{}, err
	}

	tenant := access.DefaultTenant
	if v, ok := fields[FieldTenant]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &tenant); err != nil {
			return Doc{}, fmt.Errorf("field %s: %w: %w", FieldTenant, domain.ErrMalformedDocument, err)
		}
	}

	var grants []string
	if v, ok := fields[FieldAccess]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &grants); err != nil {
			return Doc{}, fmt.Errorf("field %s: %w: %w", FieldAccess, domain.ErrMalformedDocument, err)
		}
	}

	obj, err := c.decodeObject(fields, FieldUpdatedTime, FieldCreatedTime, FieldTenant, FieldAccess)
	if err != nil {
		return Doc{}, err
	}

	md, err := NewMetadata(updated, created, tenant, grants)
	if err != nil {
		return Doc{}, fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err)
	}

	return Doc{Metadata: md, Object: obj}, nil
}

// ParseRequest decodes a create or update request body: an optional type
// discriminator and the payload under its tag.
func (c *Codec) ParseRequest(raw []byte) (object.Object, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return object.Object{}, err
	}
	return c.decodeObject(fields)
}

// Serialize encodes a document. It is the inverse of Parse.
func (c *Codec) Serialize(doc Doc) ([]byte, error) {
	payload, err := c.EncodePayload(doc.Object)
	if err != nil {
		return nil, err
	}

	grants := doc.Metadata.Access
	if grants == nil {
		grants = []string{}
	}

	tag := doc.Object.Type().Tag()
	out := map[string]any{
		FieldType:        tag,
		FieldUpdatedTime: doc.Metadata.UpdatedTime.UnixMilli(),
		FieldCreatedTime: doc.Metadata.CreatedTime.UnixMilli(),
		FieldTenant:      doc.Metadata.Tenant,
		FieldAccess:      grants,
		tag:              payload,
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// EncodePayload encodes only the payload of o.
func (c *Codec) EncodePayload(o object.Object) (json.RawMessage, error) {
	ser, ok := c.registry.SerializerFor(o.Type())
	if !ok {
		return nil, fmt.Errorf("no serializer for type %s: %w", o.Type(), domain.ErrInvariantViolation)
	}
	data, err := ser(o.Payload())
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// decodeObject resolves the payload of a document. The discriminator is read
// first; documents without one fall back to a single lookup of a registered
// payload key, which only legacy documents need. ignored names fields that
// belong to the caller and are not reported as unknown.
func (c *Codec) decodeObject(fields map[string]json.RawMessage, ignored ...string) (object.Object, error) {
	t, err := c.resolveType(fields)
	if err != nil {
		return object.Object{}, err
	}

	tag := t.Tag()
	rawPayload, ok := fields[tag]
	if !ok || isNull(rawPayload) {
		return object.Object{}, fmt.Errorf("%s payload absent: %w", tag, domain.ErrMalformedDocument)
	}

	parse, ok := c.registry.ParserFor(t)
	if !ok {
		return object.Object{}, fmt.Errorf("no parser for type %s: %w", t, domain.ErrMalformedDocument)
	}
	payload, err := parse(rawPayload)
	if err != nil {
		return object.Object{}, fmt.Errorf("parse payload: %w", err)
	}
	if !c.registry.Validate(t, payload) {
		return object.Object{}, fmt.Errorf("%s payload failed validation: %w", t, domain.ErrMalformedDocument)
	}

	c.logUnknown(fields, tag, ignored)

	obj, err := object.New(t, payload)
	if err != nil {
		return object.Object{}, fmt.Errorf("build object: %w", err)
	}
	return obj, nil
}

func (c *Codec) resolveType(fields map[string]json.RawMessage) (object.Type, error) {
	if v, ok := fields[FieldType]; ok && !isNull(v) {
		var tag string
		if err := json.Unmarshal(v, &tag); err != nil {
			return object.TypeNone, fmt.Errorf("field %s: %w: %w", FieldType, domain.ErrMalformedDocument, err)
		}
		t := c.registry.Resolve(tag)
		if t.IsNone() {
			return object.TypeNone, fmt.Errorf("unknown type %q: %w", tag, domain.ErrMalformedDocument)
		}
		return t, nil
	}

	// Legacy documents predate the discriminator.
	for _, key := range sortedKeys(fields) {
		if t := c.registry.Resolve(key); !t.IsNone() {
			c.logger.Debug("document without type discriminator, resolved by payload key",
				zap.String("type", t.Tag()),
			)
			return t, nil
		}
	}
	return object.TypeNone, fmt.Errorf("no type discriminator and no payload key: %w", domain.ErrMalformedDocument)
}

func (c *Codec) logUnknown(fields map[string]json.RawMessage, payloadKey string, ignored []string) {
	for _, key := range sortedKeys(fields) {
		if key == FieldType || key == payloadKey || contains(ignored, key) {
			continue
		}
		c.logger.Debug("skipping unknown document field", zap.String("field", key))
	}
}

func decodeFields(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w: %w", domain.ErrMalformedDocument, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("document is null: %w", domain.ErrMalformedDocument)
	}
	return fields, nil
}

func requiredMillis(fields map[string]json.RawMessage, name string) (time.Time, error) {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return time.Time{}, fmt.Errorf("field %s absent: %w", name, domain.ErrMalformedDocument)
	}
	var ms int64
	if err := json.Unmarshal(v, &ms); err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w: %w", name, domain.ErrMalformedDocument, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func isNull(v json.RawMessage) bool {
	return string(v) == "null"
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
