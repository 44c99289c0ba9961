package session

import (
	"fmt"
	"regexp"
	"strings"
)

var userRegexp = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// NormalizeUserID trims the input and checks that it is usable as a user id
// and as a directory name.
func NormalizeUserID(input string) (string, error) {
	id := strings.TrimSpace(input)
	if err := ValidateUserID(id); err != nil {
		return "", err
	}
	return id, nil
}

// ValidateUserID checks that id conforms to user naming rules.
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user id is empty")
	}
	if id == "." || id == ".." || !userRegexp.MatchString(id) {
		return fmt.Errorf("invalid user id %q: must match ^[A-Za-z0-9._-]{1,64}$", id)
	}
	return nil
}
