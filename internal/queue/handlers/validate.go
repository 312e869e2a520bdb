package handlers

import (
	"regexp"

	"github.com/vzanotti/gappsd-go/internal/queue"
)

// Per-field regular expressions from the external job-parameter schema.
// Compiled once at package load, shared by every directory handler's
// validate step, generalizing the teacher's go-playground/validator
// tag-driven style to the original daemon's ad-hoc regex validation
// (there is no structured field-tag schema in the original to preserve).
var (
	usernameRe  = regexp.MustCompile(`^[a-z0-9._-]+`)
	// \p{L} (not \w, which is ASCII-only even under (?i) in RE2) so
	// names like "José" validate the way the original's re.UNICODE
	// pattern does.
	nameRe = regexp.MustCompile(`^[\p{L}\p{N} /.'_-]{1,40}$`)
	passwordRe  = regexp.MustCompile(`^[a-f0-9]{40}$`)
	suspendedRe = regexp.MustCompile(`^(true|false)$`)
)

func validateUsername(v string) error {
	if !usernameRe.MatchString(v) {
		return queue.Permanentf("invalid username %q", v)
	}
	return nil
}

func validateName(field, v string) error {
	if !nameRe.MatchString(v) {
		return queue.Permanentf("invalid %s %q", field, v)
	}
	return nil
}

func validatePasswordSHA1(v string) error {
	if !passwordRe.MatchString(v) {
		return queue.Permanentf("invalid password hash")
	}
	return nil
}

func validateSuspendedString(v string) error {
	if !suspendedRe.MatchString(v) {
		return queue.Permanentf("invalid suspended value %q", v)
	}
	return nil
}
