package form

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Check returns advisory messages for a value against this metadata.
// A nil or empty value yields nothing; required-ness is the gate's concern.
// An invalid pattern is skipped rather than reported here (see Validate).
//
// For Multiple values every element is checked on its own.
func (v *Validation) Check(val Value) []string {
	if v == nil || IsEmpty(val) {
		return nil
	}

	var re *regexp.Regexp
	if v.Pattern != "" {
		re, _ = regexp.Compile(v.Pattern)
	}

	var issues []string
	for _, s := range Strings(val) {
		n := utf8.RuneCountInString(s)
		switch {
		case re != nil && !re.MatchString(s):
			issues = append(issues, v.messageOr(fmt.Sprintf("%q does not match the expected format", s)))
		case v.MinLength != nil && n < *v.MinLength:
			issues = append(issues, v.messageOr(fmt.Sprintf("must be at least %d characters", *v.MinLength)))
		case v.MaxLength != nil && n > *v.MaxLength:
			issues = append(issues, v.messageOr(fmt.Sprintf("must be at most %d characters", *v.MaxLength)))
		}
	}
	return issues
}

func (v *Validation) messageOr(fallback string) string {
	if v.Message != "" {
		return v.Message
	}
	return fallback
}
