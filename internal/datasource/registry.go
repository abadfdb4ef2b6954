package datasource

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Decoder turns a raw JSON configuration payload into a validated
// DataSource of one concrete variant.
type Decoder func(raw json.RawMessage) (DataSource, error)

// Registry maps variant discriminant tags to decoders. It is constructed
// once and read-only afterwards; callers needing polymorphic construction
// receive it as a dependency.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry builds the registry with the three built-in variants.
func NewRegistry() *Registry {
	return &Registry{
		decoders: map[string]Decoder{
			SourceTypeHTTP: func(raw json.RawMessage) (DataSource, error) {
				var cfg HTTPConfig
				if err := decodeStrict(raw, &cfg); err != nil {
					return nil, err
				}
				return NewHTTP(cfg)
			},
			SourceTypeMongo: func(raw json.RawMessage) (DataSource, error) {
				var cfg MongoConfig
				if err := decodeStrict(raw, &cfg); err != nil {
					return nil, err
				}
				return NewMongo(cfg)
			},
			SourceTypeSQL: func(raw json.RawMessage) (DataSource, error) {
				var cfg SQLConfig
				if err := decodeStrict(raw, &cfg); err != nil {
					return nil, err
				}
				return NewSQL(cfg)
			},
		},
	}
}

// Types returns the registered discriminant tags in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.decoders))
	for tag := range r.decoders {
		types = append(types, tag)
	}
	sort.Strings(types)
	return types
}

// Decode constructs the concrete variant selected by the payload's "type"
// field. An unknown tag fails with a *ValidationError; all other validation
// is delegated to the variant's constructor.
func (r *Registry) Decode(raw json.RawMessage) (DataSource, error) {
	var discriminant struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &discriminant); err != nil {
		return nil, newValidationError("payload", "not a JSON object: %v", err)
	}

	decoder, ok := r.decoders[discriminant.Type]
	if !ok {
		return nil, newValidationError("type", "unknown source type %q", discriminant.Type)
	}

	return decoder(raw)
}

// DecodeInput behaves like Decode but structurally forbids the "id" field,
// for payloads supplied externally before a persistence identity exists.
func (r *Registry) DecodeInput(raw json.RawMessage) (DataSource, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, newValidationError("payload", "not a JSON object: %v", err)
	}
	if _, ok := fields["id"]; ok {
		return nil, newValidationError("id", "must not be set on input payloads")
	}

	return r.Decode(raw)
}

// decodeStrict unmarshals a payload rejecting fields the variant does not
// define.
func decodeStrict(raw json.RawMessage, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return newValidationError("payload", "%v", err)
	}
	return nil
}
