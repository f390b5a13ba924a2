package model

import (
	"encoding/json"
	"fmt"
)

const (
	PropID          = "id"
	PropName        = "name"
	PropDescription = "description"
	PropPath        = "path"
	PropProcessedAt = "processedAt"
)

type Entity struct {
	Type       EntityType     `json:"type" jsonschema:"enum=Organization,enum=Invoice,enum=PaymentTerm,enum=Document,enum=Contract,enum=ServiceItem,enum=Employee,enum=Department,enum=CostCenter,enum=Payroll,enum=PayrollItem" jsonschema_description:"The type of the entity (e.g., 'Organization', 'Invoice')"`
	Properties map[string]any `json:"properties" jsonschema_description:"Properties specific to this entity type (e.g., id, name, amount, date)"`
	Embedding  []float32      `json:"embedding,omitempty" jsonschema:"-"`
}

// ID returns the entity's id property, or "" when it is missing or not a string.
func (e *Entity) ID() string {
	id, _ := e.Properties[PropID].(string)
	return id
}

func (e *Entity) SetID(id string) {
	if e.Properties == nil {
		e.Properties = map[string]any{}
	}
	e.Properties[PropID] = id
}

// StringProp returns a string-valued property, or "".
func (e *Entity) StringProp(key string) string {
	s, _ := e.Properties[key].(string)
	return s
}

func (e *Entity) Ref() EntityRef {
	return EntityRef{Type: e.Type, ID: e.ID()}
}

type EntityRef struct {
	Type EntityType `json:"type" jsonschema_description:"The type of entity being referenced (e.g., 'Organization', 'Invoice')"`
	ID   string     `json:"id" jsonschema_description:"Identifier of the referenced entity, for example 'organization_1'"`
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s(%s)", r.Type, r.ID)
}

type Relationship struct {
	From       EntityRef        `json:"from" jsonschema_description:"The source entity of the relationship"`
	To         EntityRef        `json:"to" jsonschema_description:"The target entity of the relationship"`
	Type       RelationshipType `json:"type" jsonschema_description:"The type of relationship (e.g., 'BILLED_TO', 'CONTAINS_ITEM')"`
	Properties map[string]any   `json:"properties" jsonschema_description:"Additional properties specific to this relationship (e.g., amount, date)"`
}

// UnmarshalJSON accepts "from_" as an alias of "from"; extraction models
// frequently emit it.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	type plain Relationship
	var aux struct {
		plain
		FromAlias *EntityRef `json:"from_"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Relationship(aux.plain)
	if r.From.ID == "" && aux.FromAlias != nil {
		r.From = *aux.FromAlias
	}
	return nil
}

type DocumentExtraction struct {
	Entities      []Entity       `json:"entities" jsonschema_description:"List of entities found in the document"`
	Relationships []Relationship `json:"relationships" jsonschema_description:"List of relationships between entities"`
}

// ParseExtraction decodes and validates a DocumentExtraction. Any failure is
// reported as a *SchemaError.
func ParseExtraction(data []byte) (*DocumentExtraction, error) {
	var ext DocumentExtraction
	if err := json.Unmarshal(data, &ext); err != nil {
		return nil, &SchemaError{Reason: "decode extraction", Err: err}
	}
	if err := ext.Validate(); err != nil {
		return nil, err
	}
	return &ext, nil
}

func (d *DocumentExtraction) Validate() error {
	for i := range d.Entities {
		e := &d.Entities[i]
		if !e.Type.Valid() {
			return &SchemaError{Reason: fmt.Sprintf("entities[%d]: unknown type %q", i, e.Type)}
		}
		if e.Properties == nil {
			return &SchemaError{Reason: fmt.Sprintf("entities[%d]: properties missing", i)}
		}
		if e.ID() == "" {
			return &SchemaError{Reason: fmt.Sprintf("entities[%d] (%s): id missing or not a string", i, e.Type)}
		}
	}
	for i, r := range d.Relationships {
		if !r.Type.Valid() {
			return &SchemaError{Reason: fmt.Sprintf("relationships[%d]: unknown type %q", i, r.Type)}
		}
		if !r.From.Type.Valid() || !r.To.Type.Valid() {
			return &SchemaError{Reason: fmt.Sprintf("relationships[%d]: unknown endpoint type", i)}
		}
		if r.From.ID == "" || r.To.ID == "" {
			return &SchemaError{Reason: fmt.Sprintf("relationships[%d] (%s): endpoint id missing", i, r.Type)}
		}
	}
	return nil
}
