package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize applies when the client omits pageSize.
	DefaultPageSize = 20
	// DefaultMaxPageSize caps pageSize.
	DefaultMaxPageSize = 100
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// Params are the paging inputs of a list request.
type Params struct {
	PageSize int
	Cursor   Cursor
}

// Parse reads pageSize and pageToken. Oversized pages are clamped rather than rejected.
func Parse(values url.Values) (Params, error) {
	params := Params{PageSize: DefaultPageSize}
	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
		}
		if size <= 0 {
			return Params{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidPageSize)
		}
		params.PageSize = min(size, DefaultMaxPageSize)
	}
	cursor, err := DecodeToken(values.Get("pageToken"))
	if err != nil {
		return Params{}, err
	}
	params.Cursor = cursor
	return params, nil
}
