package thegoat

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrOptionNotFound  = errors.New("option not found")
	ErrCommentNotFound = errors.New("comment not found")
	// ErrNotificationNotFound is also returned for notifications of other users.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrPollClosed is returned when voting on a poll that ended, passed its end time or is a draft.
	ErrPollClosed = errors.New("poll is closed")
	// ErrAlreadyVoted is returned when an identity already voted on a poll.
	ErrAlreadyVoted   = errors.New("already voted")
	ErrUnknownOption  = errors.New("option does not belong to poll")
	ErrOptionHasVotes = errors.New("option has votes")
	ErrForbidden      = errors.New("forbidden")
	// ErrDuplicate and ErrReferenceMissing are returned by stores on constraint violations.
	ErrDuplicate        = errors.New("duplicate key")
	ErrReferenceMissing = errors.New("violates foreign key")
)

// errorBody is the JSON payload of every error response.
type errorBody struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

type ErrorResponder interface {
	RespondError(w http.ResponseWriter, r *http.Request) bool
}

// Maybe404Error responds with not found status code, if its supplied error
// is one of the not found errors.
type Maybe404Error struct {
	err error
}

func Maybe404(err error) *Maybe404Error {
	return &Maybe404Error{err: err}
}

func (e *Maybe404Error) Error() string {
	return fmt.Sprintf("Maybe404: %v", e.err.Error())
}

func (e *Maybe404Error) Unwrap() error {
	return e.err
}

func (e *Maybe404Error) Is404() bool {
	return errors.Is(e.err, ErrPollNotFound) ||
		errors.Is(e.err, ErrOptionNotFound) ||
		errors.Is(e.err, ErrCommentNotFound) ||
		errors.Is(e.err, ErrNotificationNotFound)
}

func (e *Maybe404Error) RespondError(w http.ResponseWriter, r *http.Request) bool {
	if !e.Is404() {
		return false
	}

	respondJSON(w, http.StatusNotFound, errorBody{
		Error:   http.StatusText(http.StatusNotFound),
		Code:    "not_found",
		Message: e.err.Error(),
	})
	return true
}

// UnauthorizedError responds with unauthorized status code.
type UnauthorizedError struct {
	path string
}

func Unauthorized(path string) *UnauthorizedError {
	return &UnauthorizedError{path: path}
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("UnauthorizedError: %v", e.path)
}

func (e *UnauthorizedError) RespondError(w http.ResponseWriter, r *http.Request) bool {
	respondJSON(w, http.StatusUnauthorized, errorBody{
		Error:   http.StatusText(http.StatusUnauthorized),
		Code:    "unauthorized",
		Message: "로그인이 필요합니다.",
	})
	return true
}

// ForbiddenError responds with forbidden status code, when the user isn't allowed to act on a resource.
type ForbiddenError struct {
	reason string
}

func Forbidden(reason string) *ForbiddenError {
	return &ForbiddenError{reason: reason}
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("ForbiddenError: %v", e.reason)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

func (e *ForbiddenError) RespondError(w http.ResponseWriter, r *http.Request) bool {
	respondJSON(w, http.StatusForbidden, errorBody{
		Error:   http.StatusText(http.StatusForbidden),
		Code:    "forbidden",
		Message: e.reason,
	})
	return true
}

// BadRequestError responds with bad request status code
type BadRequestError struct {
	err error
}

func BadRequest(err error) *BadRequestError {
	return &BadRequestError{err: err}
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("BadRequestError: %v", e.err)
}

func (e *BadRequestError) RespondError(w http.ResponseWriter, r *http.Request) bool {
	respondJSON(w, http.StatusBadRequest, errorBody{
		Error:   http.StatusText(http.StatusBadRequest),
		Code:    "bad_request",
		Message: e.err.Error(),
	})
	return true
}

// UnprocessableEntityError responds with unprocessable entity status code, listing
// fields that are invalid.
type UnprocessableEntityError struct {
	fieldNames []string
	err        error
}

func UnprocessableEntity(fieldNames ...string) *UnprocessableEntityError {
	return &UnprocessableEntityError{
		fieldNames: fieldNames,
	}
}

func UnprocessableEntityWithError(err error, fieldNames ...string) *UnprocessableEntityError {
	return &UnprocessableEntityError{
		err:        err,
		fieldNames: fieldNames,
	}
}

func (e *UnprocessableEntityError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("UnprocessableEntityError: error %v, %v", e.err, e.fieldNames)
	} else {
		return fmt.Sprintf("UnprocessableEntityError: %v", e.fieldNames)
	}
}

func (e *UnprocessableEntityError) Unwrap() error {
	return e.err
}

func (e *UnprocessableEntityError) Fields() []string {
	return e.fieldNames
}

func (e *UnprocessableEntityError) RespondError(w http.ResponseWriter, r *http.Request) bool {
	body := errorBody{
		Error:  http.StatusText(http.StatusUnprocessableEntity),
		Code:   "invalid",
		Fields: e.fieldNames,
	}
	if e.err != nil {
		body.Message = e.err.Error()
	}
	respondJSON(w, http.StatusUnprocessableEntity, body)
	return true
}

// MethodNotAllowedError responds with a method not allowed status code.
type MethodNotAllowedError struct {
	method string
	path   string
}

func MethodNotAllowed(method string, path string) *MethodNotAllowedError {
	return &MethodNotAllowedError{
		method: method,
		path:   path,
	}
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("MethodNotAllowed: %v %v", e.method, e.path)
}

func (e *MethodNotAllowedError) RespondError(w http.ResponseWriter, r *http.Request) bool {
	respondJSON(w, http.StatusMethodNotAllowed, errorBody{
		Error: http.StatusText(http.StatusMethodNotAllowed),
		Code:  "method_not_allowed",
	})
	return true
}

// ConflictError responds with a conflict status code, for requests that cannot apply to the current
// state of a poll: voting twice, voting on a closed poll, removing an option that got votes.
type ConflictError struct {
	code string
	err  error
}

func Conflict(code string, err error) *ConflictError {
	return &ConflictError{code: code, err: err}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ConflictError: %s: %v", e.code, e.err)
}

func (e *ConflictError) Unwrap() error {
	return e.err
}

func (e *ConflictError) RespondError(w http.ResponseWriter, r *http.Request) bool {
	respondJSON(w, http.StatusConflict, errorBody{
		Error:   http.StatusText(http.StatusConflict),
		Code:    e.code,
		Message: UserMessage(e.err),
	})
	return true
}

// UserMessage turns an error into the message shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPollClosed):
		return "이 투표는 이미 종료되었습니다."
	case errors.Is(err, ErrAlreadyVoted):
		return "이미 투표하셨습니다."
	case errors.Is(err, ErrOptionHasVotes):
		return "투표가 있는 옵션은 삭제할 수 없습니다."
	case errors.Is(err, ErrDuplicate):
		return "이미 존재하는 데이터입니다"
	case errors.Is(err, ErrReferenceMissing):
		return "참조하는 데이터가 존재하지 않습니다"
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "duplicate key"):
		return "이미 존재하는 데이터입니다"
	case strings.Contains(msg, "violates foreign key"):
		return "참조하는 데이터가 존재하지 않습니다"
	case strings.Contains(msg, "JWT"), strings.Contains(msg, "securecookie"):
		return "인증이 만료되었습니다. 다시 로그인해주세요"
	case strings.Contains(msg, "Network"), strings.Contains(msg, "connection refused"):
		return "네트워크 연결을 확인해주세요"
	}

	return "오류가 발생했습니다"
}
