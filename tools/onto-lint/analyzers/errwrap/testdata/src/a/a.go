package a

import (
	"errors"
	"fmt"
)

var errBase = errors.New("base")

type customError struct{}

func (*customError) Error() string { return "custom" }

func bad(id string) error {
	if id == "" {
		return fmt.Errorf("loading %s: %v", id, errBase) // want "error formatted without %w"
	}
	return fmt.Errorf("decoding: %s", &customError{}) // want "error formatted without %w"
}

func good(id string) error {
	if id == "" {
		return fmt.Errorf("loading %s: %w", id, errBase)
	}
	if len(id) > 10 {
		return fmt.Errorf("id %q too long", id)
	}
	return errors.New("plain")
}
