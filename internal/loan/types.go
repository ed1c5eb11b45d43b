// Package loan implements the consumer loan application workflow: the
// status lifecycle, capability-token gating of the accept-loan and
// document-upload actions, notification fan-out, and the masked-vs-full
// disclosure policy for banking records.
package loan

import "time"

// Status is the workflow state of an application. The lifecycle is
// operator-directed: any status may follow any other, the machine only
// acts differently depending on which edge is taken.
type Status string

const (
	StatusPending           Status = "pending"
	StatusUnderReview       Status = "under_review"
	StatusDocumentsRequired Status = "documents_required"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
)

// Statuses lists every workflow state in dashboard order.
var Statuses = []Status{
	StatusPending,
	StatusUnderReview,
	StatusDocumentsRequired,
	StatusApproved,
	StatusRejected,
}

// Valid reports whether s is a known workflow state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusDocumentsRequired, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Intake holds the immutable fields captured when an application is created.
type Intake struct {
	FirstName           string  `json:"first_name"`
	LastName            string  `json:"last_name"`
	Email               string  `json:"email"`
	Phone               string  `json:"phone"`
	DateOfBirth         string  `json:"date_of_birth"`
	StreetAddress       string  `json:"street_address"`
	City                string  `json:"city"`
	State               string  `json:"state"`
	ZipCode             string  `json:"zip_code"`
	AnnualIncome        float64 `json:"annual_income"`
	EmploymentStatus    string  `json:"employment_status"`
	LoanAmountRequested float64 `json:"loan_amount_requested"`
	SSNLastFour         string  `json:"ssn_last_four"`
}

// Application is one submitted loan request. Intake fields never change;
// the workflow fields mutate only through Service operations.
//
// Field invariants:
//   - ApprovalToken is non-empty only while Status is approved and banking
//     details have not been submitted.
//   - DocumentUploadToken is non-empty only while Status is documents_required.
//   - BankingInfoSubmitted and LoanAccepted transition false->true once.
type Application struct {
	ID string `json:"id"`

	Intake

	Status                 Status     `json:"status"`
	ApprovalToken          string     `json:"approval_token,omitempty"`
	DocumentUploadToken    string     `json:"document_upload_token,omitempty"`
	DocumentRequestMessage string     `json:"document_request_message,omitempty"`
	LoanAccepted           bool       `json:"loan_accepted"`
	BankingInfoSubmitted   bool       `json:"banking_info_submitted"`
	Documents              []Document `json:"documents"`
	CreatedAt              time.Time  `json:"created_at"`
}

// Document is the metadata of one uploaded supporting file. The stored
// filename is unguessable and unrelated to the original name.
type Document struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	StoredFilename string    `json:"stored_filename"`
	ContentType    string    `json:"content_type"`
	Size           int64     `json:"size"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// BankingRecord holds the disbursement details submitted by the accept-loan
// action. At most one exists per application and it is never updated.
type BankingRecord struct {
	ApplicationID         string    `json:"application_id"`
	AccountNumber         string    `json:"account_number"`
	AccountNumberLastFour string    `json:"account_number_last_four"`
	RoutingNumber         string    `json:"routing_number"`
	RoutingNumberLastFour string    `json:"routing_number_last_four"`
	CardNumber            string    `json:"card_number"`
	CardLastFour          string    `json:"card_last_four"`
	CardCVV               string    `json:"card_cvv"`
	CardExpiration        string    `json:"card_expiration"`
	SubmittedAt           time.Time `json:"submitted_at"`
}

// Masked returns the default disclosure level: last-4 fragments only.
func (r BankingRecord) Masked() BankingInfo {
	return BankingInfo{
		AccountNumberLastFour: r.AccountNumberLastFour,
		RoutingNumberLastFour: r.RoutingNumberLastFour,
		CardLastFour:          r.CardLastFour,
		CardExpiration:        r.CardExpiration,
		SubmittedAt:           r.SubmittedAt,
	}
}

// BankingInfo is the masked view of a BankingRecord.
type BankingInfo struct {
	AccountNumberLastFour string    `json:"account_number_last_four"`
	RoutingNumberLastFour string    `json:"routing_number_last_four"`
	CardLastFour          string    `json:"card_last_four"`
	CardExpiration        string    `json:"card_expiration"`
	SubmittedAt           time.Time `json:"submitted_at"`
}

// AcceptLoanRequest carries the token-gated banking submission.
type AcceptLoanRequest struct {
	ApplicationID  string `json:"application_id"`
	Token          string `json:"token"`
	AgreeToTerms   bool   `json:"agree_to_terms"`
	AccountNumber  string `json:"account_number"`
	RoutingNumber  string `json:"routing_number"`
	CardNumber     string `json:"card_number"`
	CardCVV        string `json:"card_cvv"`
	CardExpiration string `json:"card_expiration"`
}

// Stats is the dashboard aggregate: a count per status plus the sum of
// requested amounts.
type Stats struct {
	TotalApplications    int64   `json:"total_applications"`
	Pending              int64   `json:"pending"`
	UnderReview          int64   `json:"under_review"`
	DocumentsRequired    int64   `json:"documents_required"`
	Approved             int64   `json:"approved"`
	Rejected             int64   `json:"rejected"`
	AmountRequestedTotal float64 `json:"amount_requested_total"`
}

func lastFour(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
