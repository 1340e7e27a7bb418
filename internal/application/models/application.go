package models

import "time"

// Closed enumerations for categorical applicant fields. Validation rejects
// anything outside these sets.
var (
	EmploymentStatuses = []string{"employed", "self_employed", "retired", "student", "unemployed"}
	IDTypes            = []string{"passport", "national_id", "residence_permit", "driving_licence"}
	LoanTypes          = []string{"personal", "auto", "home_improvement", "business", "debt_consolidation"}
	BusinessTypes      = []string{"sole_proprietor", "sarl", "sa", "association", "other"}
	Disbursements      = []string{"bank_transfer", "check"}
)

// Loan bounds enforced by the submission profile.
const (
	MinLoanAmount = 1_000
	MaxLoanAmount = 100_000
	MinLoanTerm   = 6
	MaxLoanTerm   = 84
)

// MaxDocumentSize caps the accepted document metadata size field (bytes).
// The bytes themselves never pass through this system.
const MaxDocumentSize = 10 << 20

// ApplicationData is the validated applicant payload. This is the structure
// that gets encrypted; the store only ever sees its ciphertext.
type ApplicationData struct {
	PersonalInfo    PersonalInfo            `json:"personalInfo"`
	BusinessInfo    *BusinessInfo           `json:"businessInfo,omitempty"`
	LoanDetails     LoanDetails             `json:"loanDetails"`
	Documents       map[string]DocumentMeta `json:"documents"`
	TermsAccepted   bool                    `json:"termsAccepted"`
	PrivacyAccepted bool                    `json:"privacyAccepted"`
}

type PersonalInfo struct {
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	DateOfBirth      string  `json:"dateOfBirth"`
	IDType           string  `json:"idType"`
	IDNumber         string  `json:"idNumber"`
	EmploymentStatus string  `json:"employmentStatus"`
	MonthlyIncome    float64 `json:"monthlyIncome"`
	Address          Address `json:"address"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type BusinessInfo struct {
	BusinessName       string  `json:"businessName"`
	BusinessType       string  `json:"businessType"`
	RegistrationNumber string  `json:"registrationNumber"`
	YearsInOperation   float64 `json:"yearsInOperation,omitempty"`
}

type LoanDetails struct {
	LoanAmount            float64     `json:"loanAmount"`
	LoanTerm              int         `json:"loanTerm"`
	LoanType              string      `json:"loanType"`
	Purpose               string      `json:"purpose"`
	PreferredDisbursement string      `json:"preferredDisbursement"`
	Collateral            *Collateral `json:"collateral,omitempty"`
}

type Collateral struct {
	Description    string  `json:"description"`
	EstimatedValue float64 `json:"estimatedValue"`
}

// DocumentMeta describes an uploaded document. Binary content lives with the
// upload collaborator and is referenced by URL; only this descriptor is
// persisted (encrypted) with the application.
type DocumentMeta struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"type"`
	UploadedAt  time.Time `json:"uploadedAt"`
	URL         string    `json:"url,omitempty"`
}

// RequiredDocuments must be present on submission.
var RequiredDocuments = []string{"idDocument", "proofOfIncome"}
