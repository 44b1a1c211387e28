package compiler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/espalier/internal/dto"
)

// Parser is responsible for converting raw bytes into a diagram definition.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a YAML (or JSON) document into a Definition. Unknown keys are
// rejected so typos surface here rather than as silently empty slots.
func (p *Parser) Parse(data []byte) (*dto.Definition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to parse definition: empty document")
	}

	var def dto.Definition
	if err := p.decode(raw, &def); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return &def, nil
}

// Decode converts a generic map (a decoded request body, for instance) into target.
func (p *Parser) Decode(raw map[string]any, target any) error {
	return p.decode(raw, target)
}

func (p *Parser) decode(raw any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.DecodeHookFuncType(endpointRefHook),
		ErrorUnused: true,
		Result:      target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

var endpointRefType = reflect.TypeOf(dto.EndpointRef{})

// endpointRefHook accepts the "slot" and "slot.attr" shorthands.
func endpointRefHook(from, to reflect.Type, data any) (any, error) {
	if to != endpointRefType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	slot, attr, _ := strings.Cut(s, ".")
	if slot == "" {
		return nil, fmt.Errorf("empty endpoint reference %q", s)
	}
	return dto.EndpointRef{Slot: slot, Endpoint: attr}, nil
}
