package ctrltest

import "errors"

var (
	// ErrInvalidRequest indicates timing or controller arguments that no
	// test case can run.
	ErrInvalidRequest = errors.New("ctrltest: invalid request")

	// ErrUnknownColumn indicates a lookup of a column the table does not have.
	ErrUnknownColumn = errors.New("ctrltest: unknown column")

	// ErrRowWidth indicates a row whose width does not match the header.
	ErrRowWidth = errors.New("ctrltest: row width does not match columns")
)
