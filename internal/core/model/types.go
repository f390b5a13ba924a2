package model

import "fmt"

type EntityType string

const (
	Organization EntityType = "Organization"
	Invoice      EntityType = "Invoice"
	PaymentTerm  EntityType = "PaymentTerm"
	Document     EntityType = "Document"
	Contract     EntityType = "Contract"
	ServiceItem  EntityType = "ServiceItem"
	Employee     EntityType = "Employee"
	Department   EntityType = "Department"
	CostCenter   EntityType = "CostCenter"
	Payroll      EntityType = "Payroll"
	PayrollItem  EntityType = "PayrollItem"
)

// EntityTypes lists every node label the graph may contain.
var EntityTypes = []EntityType{
	Organization, Invoice, PaymentTerm, Document, Contract, ServiceItem,
	Employee, Department, CostCenter, Payroll, PayrollItem,
}

var resolvableTypes = map[EntityType]bool{
	Organization: true,
	Employee:     true,
	Department:   true,
	CostCenter:   true,
	ServiceItem:  true,
}

func (t EntityType) Valid() bool {
	for _, et := range EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Resolvable reports whether entities of this type are matched against
// existing nodes by embedding similarity.
func (t EntityType) Resolvable() bool {
	return resolvableTypes[t]
}

func (t *EntityType) UnmarshalText(b []byte) error {
	v := EntityType(b)
	if !v.Valid() {
		return fmt.Errorf("unknown entity type %q", string(b))
	}
	*t = v
	return nil
}

type RelationshipType string

const (
	BilledTo       RelationshipType = "BILLED_TO"
	BilledBy       RelationshipType = "BILLED_BY"
	ContainsItem   RelationshipType = "CONTAINS_ITEM"
	HasPaymentTerm RelationshipType = "HAS_PAYMENT_TERM"
	MentionedIn    RelationshipType = "MENTIONED_IN"
	PartyTo        RelationshipType = "PARTY_TO"
	HasService     RelationshipType = "HAS_SERVICE"
	IssuesPayroll  RelationshipType = "ISSUES_PAYROLL"
	ReceivesPayrol RelationshipType = "RECEIVES_PAYROLL"
	HasPayrollItem RelationshipType = "HAS_PAYROLL_ITEM"
	BelongsTo      RelationshipType = "BELONGS_TO"
	IsInstanceOf   RelationshipType = "IS_INSTANCE_OF"
	HasEmployee    RelationshipType = "HAS_EMPLOYEE"
)

var RelationshipTypes = []RelationshipType{
	BilledTo, BilledBy, ContainsItem, HasPaymentTerm, MentionedIn, PartyTo,
	HasService, IssuesPayroll, ReceivesPayrol, HasPayrollItem, BelongsTo,
	IsInstanceOf, HasEmployee,
}

func (t RelationshipType) Valid() bool {
	for _, rt := range RelationshipTypes {
		if rt == t {
			return true
		}
	}
	return false
}

func (t *RelationshipType) UnmarshalText(b []byte) error {
	v := RelationshipType(b)
	if !v.Valid() {
		return fmt.Errorf("unknown relationship type %q", string(b))
	}
	*t = v
	return nil
}

// DocumentType tags the extraction strategy chosen by classification.
type DocumentType string

const (
	InvoiceDocument  DocumentType = "invoice"
	ContractDocument DocumentType = "contract"
	PaystubDocument  DocumentType = "paystub"
)

var DocumentTypes = []DocumentType{InvoiceDocument, ContractDocument, PaystubDocument}

func ParseDocumentType(s string) (DocumentType, error) {
	for _, dt := range DocumentTypes {
		if string(dt) == s {
			return dt, nil
		}
	}
	return "", &SchemaError{Reason: fmt.Sprintf("unknown document type %q", s)}
}

// Stage is the last pipeline stage a document completed.
type Stage int

const (
	Unprocessed Stage = iota
	Parsed
	Extracted
	Embedded
	Resolved
	Committed
)

func (s Stage) String() string {
	switch s {
	case Unprocessed:
		return "UNPROCESSED"
	case Parsed:
		return "PARSED"
	case Extracted:
		return "EXTRACTED"
	case Embedded:
		return "EMBEDDED"
	case Resolved:
		return "RESOLVED"
	case Committed:
		return "COMMITTED"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	for st := Unprocessed; st <= Committed; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(b))
}
