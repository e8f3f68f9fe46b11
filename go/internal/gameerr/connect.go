package gameerr

import (
	"connectrpc.com/connect"
)

// ConnectError converts an error that IsExpected rejected into a connect
// error. Transport failures map to unavailable so clients may retry.
func ConnectError(err error) error {
	if KindOf(err) == KindTransport {
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
