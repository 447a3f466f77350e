package core

import "errors"

// QueryResult carries the JSON encoded value returned by state queries.
type QueryResult struct {
	Value []byte
}

// ErrQueryNotSupported indicates the requested namespace/path is not handled by the state router.
var ErrQueryNotSupported = errors.New("query: not supported")
