// Package validate checks applicant payloads against the application schema.
//
// Two profiles cover the same logical shape. The draft profile treats every
// field as optional but still type-checks whatever is present, so garbage
// never gets silently stored. The submission profile requires the full
// shape, enforces loan bounds and closed enumerations, and insists on both
// legal acceptances being exactly true.
//
// Data-shape problems are results, not errors: both profiles return a list
// of field-scoped findings and never fail with a Go error for bad input.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"lendo/internal/application/models"
)

// FieldError locates a single validation finding.
type FieldError struct {
	Path    string `json:"field"`
	Message string `json:"message"`
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Draft validates a partial payload. Absent fields are fine; present fields
// must have the right type and format.
func Draft(raw map[string]any) []FieldError {
	v := &visitor{strict: false}
	v.walk(raw)
	return v.errs
}

// Submission validates a complete payload and, when it is clean, returns the
// typed structure that will be encrypted and stored. Any findings mean no
// structure is returned.
func Submission(raw map[string]any) (*models.ApplicationData, []FieldError) {
	v := &visitor{strict: true}
	data := v.walk(raw)
	if len(v.errs) > 0 {
		return nil, v.errs
	}
	return data, nil
}

// visitor accumulates findings while walking the payload. In strict mode it
// also builds the typed result.
type visitor struct {
	strict bool
	errs   []FieldError
}

func (v *visitor) addf(path, format string, args ...any) {
	v.errs = append(v.errs, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *visitor) walk(raw map[string]any) *models.ApplicationData {
	data := &models.ApplicationData{}

	if personal, ok := v.object(raw, "personalInfo"); ok {
		data.PersonalInfo = v.personalInfo(personal)
	}
	if business, present := raw["businessInfo"]; present {
		if obj, ok := business.(map[string]any); ok {
			info := v.businessInfo(obj)
			data.BusinessInfo = &info
		} else {
			v.addf("businessInfo", "must be an object")
		}
	}
	if details, ok := v.object(raw, "loanDetails"); ok {
		data.LoanDetails = v.loanDetails(details)
	}
	data.Documents = v.documents(raw)

	data.TermsAccepted = v.acceptance(raw, "termsAccepted")
	data.PrivacyAccepted = v.acceptance(raw, "privacyAccepted")

	return data
}

func (v *visitor) personalInfo(m map[string]any) models.PersonalInfo {
	info := models.PersonalInfo{
		FirstName:        v.str(m, "personalInfo.firstName", 1, 100),
		LastName:         v.str(m, "personalInfo.lastName", 1, 100),
		Phone:            v.str(m, "personalInfo.phone", 6, 20),
		IDNumber:         v.str(m, "personalInfo.idNumber", 3, 50),
		IDType:           v.enum(m, "personalInfo.idType", models.IDTypes),
		EmploymentStatus: v.enum(m, "personalInfo.employmentStatus", models.EmploymentStatuses),
	}

	if email, ok := v.presentString(m, "personalInfo.email"); ok {
		if !emailRe.MatchString(email) {
			v.addf("personalInfo.email", "must be a valid email address")
		}
		info.Email = email
	}

	if dob, ok := v.presentString(m, "personalInfo.dateOfBirth"); ok {
		if _, err := time.Parse("2006-01-02", dob); err != nil {
			v.addf("personalInfo.dateOfBirth", "must be a date in YYYY-MM-DD format")
		}
		info.DateOfBirth = dob
	}

	if income, ok := v.number(m, "personalInfo.monthlyIncome"); ok {
		if v.strict && income < 0 {
			v.addf("personalInfo.monthlyIncome", "must not be negative")
		}
		info.MonthlyIncome = income
	}

	if addr, ok := v.objectAt(m, "personalInfo", "address"); ok {
		info.Address = models.Address{
			Street:     v.str(addr, "personalInfo.address.street", 1, 200),
			City:       v.str(addr, "personalInfo.address.city", 1, 100),
			PostalCode: v.str(addr, "personalInfo.address.postalCode", 2, 20),
			Country:    v.str(addr, "personalInfo.address.country", 2, 100),
		}
	}

	return info
}

func (v *visitor) businessInfo(m map[string]any) models.BusinessInfo {
	info := models.BusinessInfo{
		BusinessName:       v.optStr(m, "businessInfo.businessName", 1, 200),
		RegistrationNumber: v.optStr(m, "businessInfo.registrationNumber", 1, 50),
	}
	// businessInfo as a whole is optional at both profiles; its fields are
	// only checked when present.
	if _, present := fieldValue(m, "businessType"); present {
		info.BusinessType = v.enumAlways(m, "businessInfo.businessType", models.BusinessTypes)
	}
	if _, present := fieldValue(m, "yearsInOperation"); present {
		if years, ok := v.optNumber(m, "businessInfo.yearsInOperation"); ok {
			if years < 0 {
				v.addf("businessInfo.yearsInOperation", "must not be negative")
			}
			info.YearsInOperation = years
		}
	}
	return info
}

func (v *visitor) loanDetails(m map[string]any) models.LoanDetails {
	details := models.LoanDetails{
		LoanType:              v.enum(m, "loanDetails.loanType", models.LoanTypes),
		Purpose:               v.str(m, "loanDetails.purpose", 1, 500),
		PreferredDisbursement: v.enum(m, "loanDetails.preferredDisbursement", models.Disbursements),
	}

	if amount, ok := v.number(m, "loanDetails.loanAmount"); ok {
		// Bounds belong to the submission profile; drafts may hold amounts
		// the applicant is still editing.
		if v.strict && (amount < models.MinLoanAmount || amount > models.MaxLoanAmount) {
			v.addf("loanDetails.loanAmount", "must be between %d and %d", models.MinLoanAmount, models.MaxLoanAmount)
		}
		details.LoanAmount = amount
	}

	if term, ok := v.number(m, "loanDetails.loanTerm"); ok {
		if term != math.Trunc(term) {
			v.addf("loanDetails.loanTerm", "must be a whole number of months")
		} else if v.strict && (term < models.MinLoanTerm || term > models.MaxLoanTerm) {
			v.addf("loanDetails.loanTerm", "must be between %d and %d months", models.MinLoanTerm, models.MaxLoanTerm)
		}
		details.LoanTerm = int(term)
	}

	if collateral, present := fieldValue(m, "collateral"); present {
		if obj, ok := collateral.(map[string]any); ok {
			c := models.Collateral{
				Description: v.optStr(obj, "loanDetails.collateral.description", 1, 500),
			}
			if value, ok := v.number(obj, "loanDetails.collateral.estimatedValue"); ok {
				if value <= 0 {
					v.addf("loanDetails.collateral.estimatedValue", "must be positive")
				}
				c.EstimatedValue = value
			}
			details.Collateral = &c
		} else {
			v.addf("loanDetails.collateral", "must be an object")
		}
	}

	return details
}

func (v *visitor) documents(raw map[string]any) map[string]models.DocumentMeta {
	docs := map[string]models.DocumentMeta{}

	value, present := raw["documents"]
	if !present {
		if v.strict {
			v.addf("documents", "is required")
		}
		return docs
	}
	m, ok := value.(map[string]any)
	if !ok {
		v.addf("documents", "must be an object")
		return docs
	}

	for name, entry := range m {
		path := "documents." + name
		obj, ok := entry.(map[string]any)
		if !ok {
			v.addf(path, "must be a document descriptor")
			continue
		}
		docs[name] = v.documentMeta(obj, path)
	}

	if v.strict {
		for _, required := range models.RequiredDocuments {
			if _, ok := docs[required]; !ok {
				v.addf("documents."+required, "is required")
			}
		}
	}

	return docs
}

func (v *visitor) documentMeta(m map[string]any, path string) models.DocumentMeta {
	meta := models.DocumentMeta{
		Name:        v.str(m, path+".name", 1, 255),
		ContentType: v.str(m, path+".type", 1, 100),
	}

	if size, ok := v.number(m, path+".size"); ok {
		switch {
		case size != math.Trunc(size) || size <= 0:
			v.addf(path+".size", "must be a positive byte count")
		case size > models.MaxDocumentSize:
			v.addf(path+".size", "exceeds the %d byte limit", models.MaxDocumentSize)
		}
		meta.Size = int64(size)
	}

	if ts, ok := v.presentString(m, path+".uploadedAt"); ok {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			v.addf(path+".uploadedAt", "must be an RFC 3339 timestamp")
		}
		meta.UploadedAt = parsed
	}

	// URL arrives later, from the upload collaborator; optional in both profiles.
	if value, present := fieldValue(m, "url"); present {
		if url, ok := value.(string); ok {
			meta.URL = url
		} else {
			v.addf(path+".url", "must be a string")
		}
	}

	return meta
}

// acceptance requires an exact boolean true in strict mode. "true" as a
// string, 1, or anything else truthy does not count.
func (v *visitor) acceptance(raw map[string]any, key string) bool {
	value, present := raw[key]
	if !present {
		if v.strict {
			v.addf(key, "must be accepted")
		}
		return false
	}
	b, ok := value.(bool)
	if !ok {
		v.addf(key, "must be a boolean")
		return false
	}
	if v.strict && !b {
		v.addf(key, "must be accepted")
	}
	return b
}

// --- walking helpers -------------------------------------------------------

// fieldValue resolves the last path segment inside m.
func fieldValue(m map[string]any, key string) (any, bool) {
	value, present := m[key]
	return value, present
}

func leaf(path string) string {
	if idx := strings.LastIndex(path, "."); idx != -1 {
		return path[idx+1:]
	}
	return path
}

func (v *visitor) object(raw map[string]any, key string) (map[string]any, bool) {
	value, present := raw[key]
	if !present {
		if v.strict {
			v.addf(key, "is required")
		}
		return nil, false
	}
	obj, ok := value.(map[string]any)
	if !ok {
		v.addf(key, "must be an object")
		return nil, false
	}
	return obj, true
}

func (v *visitor) objectAt(m map[string]any, parent, key string) (map[string]any, bool) {
	value, present := m[key]
	if !present {
		if v.strict {
			v.addf(parent+"."+key, "is required")
		}
		return nil, false
	}
	obj, ok := value.(map[string]any)
	if !ok {
		v.addf(parent+"."+key, "must be an object")
		return nil, false
	}
	return obj, true
}

// str enforces presence (strict only) plus type and length when present.
func (v *visitor) str(m map[string]any, path string, min, max int) string {
	value, present := fieldValue(m, leaf(path))
	if !present {
		if v.strict {
			v.addf(path, "is required")
		}
		return ""
	}
	s, ok := value.(string)
	if !ok {
		v.addf(path, "must be a string")
		return ""
	}
	if n := len(strings.TrimSpace(s)); v.strict && (n < min || n > max) {
		v.addf(path, "must be between %d and %d characters", min, max)
	}
	return s
}

// optStr is like str but never required, in either profile.
func (v *visitor) optStr(m map[string]any, path string, min, max int) string {
	if _, present := fieldValue(m, leaf(path)); !present {
		return ""
	}
	strict := v.strict
	v.strict = false
	defer func() { v.strict = strict }()
	return v.str(m, path, min, max)
}

// presentString reports a string value only when present and well-typed,
// recording required/type findings as appropriate.
func (v *visitor) presentString(m map[string]any, path string) (string, bool) {
	value, present := fieldValue(m, leaf(path))
	if !present {
		if v.strict {
			v.addf(path, "is required")
		}
		return "", false
	}
	s, ok := value.(string)
	if !ok {
		v.addf(path, "must be a string")
		return "", false
	}
	return s, true
}

// optNumber type-checks a number without requiring it in either profile.
func (v *visitor) optNumber(m map[string]any, path string) (float64, bool) {
	strict := v.strict
	v.strict = false
	defer func() { v.strict = strict }()
	return v.number(m, path)
}

func (v *visitor) number(m map[string]any, path string) (float64, bool) {
	value, present := fieldValue(m, leaf(path))
	if !present {
		if v.strict {
			v.addf(path, "is required")
		}
		return 0, false
	}
	n, ok := value.(float64)
	if !ok {
		v.addf(path, "must be a number")
		return 0, false
	}
	return n, true
}

func (v *visitor) enum(m map[string]any, path string, allowed []string) string {
	value, ok := v.presentString(m, path)
	if !ok {
		return ""
	}
	return v.checkEnum(value, path, allowed)
}

// enumAlways checks an enum value that the caller already knows is present.
func (v *visitor) enumAlways(m map[string]any, path string, allowed []string) string {
	value, present := fieldValue(m, leaf(path))
	if !present {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		v.addf(path, "must be a string")
		return ""
	}
	return v.checkEnum(s, path, allowed)
}

// checkEnum enforces closed enumerations; a submission-profile rule, since
// wizard drafts may hold in-progress selections.
func (v *visitor) checkEnum(value, path string, allowed []string) string {
	if !v.strict {
		return value
	}
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	v.addf(path, "must be one of: %s", strings.Join(allowed, ", "))
	return value
}
