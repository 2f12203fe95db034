package domain

import (
	"fmt"
	"regexp"
)

// EmailRule validates institutional email addresses for the configured domain.
// The local part encodes enrollment year, program and batch, e.g.
// jdoe2021.btechcse24@inst.edu.
type EmailRule struct {
	re *regexp.Regexp
}

// NewEmailRule compiles the institutional grammar for the given mail domain.
func NewEmailRule(institutionDomain string) *EmailRule {
	pattern := fmt.Sprintf(`^[A-Za-z0-9]+[0-9]{4}\.(be|btech|mtech|phd)[A-Za-z]{2,4}[0-9]{2}@%s$`,
		regexp.QuoteMeta(institutionDomain))
	return &EmailRule{re: regexp.MustCompile(pattern)}
}

// Match reports whether the address belongs to the institution.
func (r *EmailRule) Match(email string) bool {
	return r.re.MatchString(email)
}
