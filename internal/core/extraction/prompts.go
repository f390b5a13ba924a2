package extraction

// Templates are rendered with text/template. Available fields:
// .Content, .DocumentPath, .ProcessedAt, .Schema, .DocumentType.

const DefaultClassifyPrompt = `You will be given the content of a document. Determine which type of document it is.
Answer with exactly one word: invoice, contract or paystub.

DOCUMENT:
{{.Content}}`

const outputFormat = `
Output your findings as a list of entities and relationships in the following JSON schema:
{{.Schema}}

For example:
{
  "entities": [
    {"type": "Organization", "properties": {"id": "organization_1", "name": "ServiceTech Solutions"}},
    {"type": "Contract", "properties": {"id": "contract_1", "description": "Master Services Agreement between ServiceTech Solutions and CitySpace Commercial Properties", "startDate": "2024-11-04", "type": "Service Agreement", "status": "Active"}}
  ],
  "relationships": [
    {
      "from": {"type": "Organization", "id": "organization_1"},
      "to": {"type": "Contract", "id": "contract_1"},
      "type": "PARTY_TO",
      "properties": {"startDate": "2024-11-04", "role": "CLIENT"}
    }
  ]
}

Every relationship endpoint must reference an entity listed in "entities" by its type and id.
Output the JSON only, nothing else.

Here are additional contexts:
- Document Path: {{.DocumentPath}}
- Document Processed At: {{.ProcessedAt}}

Ensure all required properties (marked with *) are included for each entity and relationship.

DOCUMENT:
{{.Content}}`

const DefaultInvoicePrompt = `You analyze invoices to extract entities and their relationships according to the following schema:

ENTITY TYPES:
- Organization (id*, name*)
- ServiceItem (id*, description*)
- Invoice (id*, description*, invoiceDate*, amount*)
- PaymentTerm (id*, description*, daysToPayment) // NET 30, EOM, etc.
- Document (id*, path*, processedAt*, description*, documentType*=invoice)

RELATIONSHIP TYPES:
1. Invoice Flow:
- (Invoice) BILLED_TO (Organization) (invoiceDate*, amount*)
- (Invoice) BILLED_BY (Organization) (invoiceDate*, amount*)
- (Invoice) CONTAINS_ITEM (ServiceItem) (quantity*, unit*, amount*)
- (Invoice) HAS_PAYMENT_TERM (PaymentTerm) (assignedDate*)

2. Document Flow:
- (Invoice) MENTIONED_IN (Document) (confidence*=1.0)
` + outputFormat

const DefaultContractPrompt = `You analyze contracts to extract entities and their relationships according to the following schema:

ENTITY TYPES:
- Organization (id*, name*)
- Contract (id*, description*, startDate*, type*, status*)
- ServiceItem (id*, description*)
- Document (id*, path*, processedAt*, description*, documentType*=contract)

RELATIONSHIP TYPES:
1. Contract Flow:
- (Organization) PARTY_TO (Contract) (startDate*, role*=[CLIENT/VENDOR])
- (Contract) HAS_SERVICE (ServiceItem) (unitPrice)

2. Document Flow:
- (Contract) MENTIONED_IN (Document) (confidence*=1.0)
` + outputFormat

const DefaultPaystubPrompt = `You analyze pay stubs to extract entities and their relationships according to the following schema:

ENTITY TYPES:
- Organization (id*, name*, type*)
- Employee (id*, name*, role*)
- Department (id*, name*)
- Payroll (id*, description*, payPeriod*, netPay*)
- PayrollItem (id*, description*, amount*, type*)
- Document (id*, path*, processedAt*, description*, documentType*=paystub)

RELATIONSHIP TYPES:
1. Payroll Flow:
- (Organization) ISSUES_PAYROLL (Payroll) (issuedDate*)
- (Employee) RECEIVES_PAYROLL (Payroll) (receivedDate*)
- (Payroll) HAS_PAYROLL_ITEM (PayrollItem) (appliedDate*)

2. Organizational Structure:
- (Employee) BELONGS_TO (Department)
- (Organization) HAS_EMPLOYEE (Employee)

3. Document Flow:
- (Payroll) MENTIONED_IN (Document) (confidence*=1.0)
` + outputFormat
