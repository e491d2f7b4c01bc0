package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound matches a 404: the room no longer exists.
	ErrNotFound = errors.New("room not found")
	// ErrRejected matches a request the server refused on its merits.
	ErrRejected = errors.New("request rejected")
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrRejected:
		return IsRejection(e.Status)
	}
	return false
}

// IsRejection reports whether status means the server refused the request
// rather than failed to serve it.
func IsRejection(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// IsTransient reports whether err is worth retrying on the next poll.
func IsTransient(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrRejected)
}
