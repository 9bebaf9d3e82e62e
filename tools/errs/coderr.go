package errs

import (
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CodeError carries a machine-readable code alongside the message so
// that socket handlers can answer the originating client with a
// structured error frame.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail returns a copy carrying extra detail; the receiver is not
// mutated so sentinel errors stay clean.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Is matches on code so WithDetail copies still compare equal to their
// sentinel via errors.Is.
func (e *CodeError) Is(target error) bool {
	var ce *CodeError
	if !stderrors.As(target, &ce) {
		return false
	}
	return e.Code == ce.Code
}

// Wrap attaches a stack trace to the sentinel.
func (e *CodeError) Wrap() error {
	return errors.WithStack(e)
}

// WrapMsg attaches detail plus a stack trace.
func (e *CodeError) WrapMsg(detail string) error {
	return errors.WithStack(e.WithDetail(detail))
}

// CodeOf extracts the code from any error in the chain, falling back
// to ServerInternalError for plain errors.
func CodeOf(err error) int {
	var ce *CodeError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ServerInternalError
}

// Wrap adds a stack trace to an arbitrary error, keeping nil as nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

// WrapMsg annotates and adds a stack trace, keeping nil as nil.
func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
