package utils

import (
	"errors"
	"strings"

	"github.com/kballard/go-shellquote"
)

// SplitStringIntoCommandAndArguments splits an interactive input line the way
// a POSIX shell would, so that payloads containing spaces can be quoted:
//
//	append orders "hello world"
//
// The command is lower-cased; arguments are returned untouched.
func SplitStringIntoCommandAndArguments(line string) (string, []string, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return "", nil, err
	}

	if len(words) == 0 {
		return "", nil, errors.New("empty command")
	}

	return strings.ToLower(words[0]), words[1:], nil
}
