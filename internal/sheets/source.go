package sheets

import (
	"context"
	"errors"
)

var (
	ErrMissingCredentials = errors.New("spreadsheet credentials are not configured")
	ErrTabNotFound        = errors.New("tab not found")
)

// Source reads and appends raw rows of a named tab. Row 0 of ReadRows is the header row.
type Source interface {
	ReadRows(ctx context.Context, tab string) ([][]string, error)
	AppendRows(ctx context.Context, tab string, rows [][]string) error
}

// Unavailable is a Source that always fails with Err. The server boots with it when the real
// backend cannot be built, so requests answer 503 instead of the process exiting.
type Unavailable struct {
	Err error
}

func (u Unavailable) ReadRows(context.Context, string) ([][]string, error) {
	return nil, u.Err
}

func (u Unavailable) AppendRows(context.Context, string, [][]string) error {
	return u.Err
}
