package catalog

import (
	"context"
	"errors"
)

// User-facing failure messages
const (
	MsgSearchHTTP      = "Oops, something went wrong! (HTTP)"
	MsgSearchNetwork   = "Couldn't reach server, check your internet connection."
	MsgDetailHTTP      = "Details not found. (HTTP)"
	MsgDetailNetwork   = "Couldn't reach server for details."
	MsgDetailsNotFound = "Movie details not found."
)

// SearchMessage returns the message and HTTP status to show for a failed
// search
func SearchMessage(err error) (string, int) {
	if code := StatusCode(err); code != 0 {
		return MsgSearchHTTP, code
	}
	if IsNetwork(err) || errors.Is(err, context.DeadlineExceeded) {
		return MsgSearchNetwork, 0
	}
	return err.Error(), 0
}

// DetailMessage returns the message and HTTP status to show for a failed
// detail lookup
func DetailMessage(err error) (string, int) {
	if errors.Is(err, ErrNotFound) {
		return MsgDetailsNotFound, 0
	}
	if code := StatusCode(err); code != 0 {
		return MsgDetailHTTP, code
	}
	if IsNetwork(err) || errors.Is(err, context.DeadlineExceeded) {
		return MsgDetailNetwork, 0
	}
	return err.Error(), 0
}
