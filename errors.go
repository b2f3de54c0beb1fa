package main

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/openchami/rack-manager/pkg/racks"
)

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	Code       string `json:"code,omitempty"`  // error kind
	ErrorText  string `json:"error,omitempty"` // application-level error message
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// ErrFromError maps a typed inventory error to its HTTP response.
// Unclassified errors become a 500 without leaking their text.
func ErrFromError(err error) *ErrResponse {
	kind := racks.KindOf(err)
	switch kind {
	case racks.KindInvalidInput, racks.KindOutOfBounds:
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusBadRequest, StatusText: "Invalid request.", Code: kind.String(), ErrorText: err.Error()}
	case racks.KindOverlap:
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusConflict, StatusText: "Conflict.", Code: kind.String(), ErrorText: err.Error()}
	case racks.KindNotFound:
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found.", Code: kind.String(), ErrorText: err.Error()}
	default:
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusInternalServerError, StatusText: "Internal server error."}
	}
}

func ErrInvalidRequest(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		Code:           racks.KindInvalidInput.String(),
		ErrorText:      err.Error(),
	}
}
