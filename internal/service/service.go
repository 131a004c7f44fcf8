// Package service holds the business rules of the navigation directory.
//
// Handlers call services with the per-request *auth.Caller (nil for
// anonymous requests). Services check access through the access package,
// validate input, and talk to storage only through the repository
// interfaces, so tests can swap in in-memory fakes.
package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sakif/navigation/internal/apperror"
)

// Field limits mirror the column sizes the frontend was built against.
const (
	MaxCategoryNameLength = 50
	MaxCategoryIconLength = 50
	MaxWebsiteTitleLength = 100
	MaxWebsiteURLLength   = 500
	MaxWebsiteIconLength  = 500
)

// requireText trims s and fails when it is empty or longer than limit runes.
func requireText(field, label, s string, limit int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperror.ValidationFailed(field, label+" is required")
	}
	return checkLength(field, label, s, limit)
}

// checkLength fails when s is longer than limit runes. Empty is allowed.
func checkLength(field, label, s string, limit int) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > limit {
		return "", apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", label, limit))
	}
	return s, nil
}

// isNotFound reports whether err is a storage miss.
func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
