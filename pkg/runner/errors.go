package runner

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNoActiveFile        = errors.New("no active file to run")
	ErrFileNotFound        = errors.New("file not found")
)

func unsupported(id string) error {
	return fmt.Errorf("%w: language %s is not supported", ErrUnsupportedLanguage, id)
}
