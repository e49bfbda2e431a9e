package errcodes

import (
	"fmt"
	"net/http"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		"not_found",
	}
}

// IOFailure returns a 500 error for a failed filesystem or archive
// operation. The message names the operation, never a filesystem path.
func IOFailure(operation string) error {
	return &Error{
		http.StatusInternalServerError,
		fmt.Sprintf("Could not %s.", operation),
		"io_failure",
	}
}

// PageOutOfRange returns an error for a page index outside [1, total].
func PageOutOfRange(page, total int) error {
	return &Error{
		http.StatusRequestedRangeNotSatisfiable,
		fmt.Sprintf("Page %d is out of range (1-%d).", page, total),
		"page_out_of_range",
	}
}

// PathConflict returns a 409 error for a move whose destination is already
// occupied by another gallery's archive.
func PathConflict() error {
	return &Error{
		http.StatusConflict,
		"Another gallery already occupies that library path.",
		"path_conflict",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		"malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
