package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

type CodeErrorI interface {
	ECode() int
	EMsg() string
	WithDetail(detail string) CodeError
	error
}

func NewCodeError(code int, msg string) CodeError {
	return CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e CodeError) ECode() int   { return e.Code }
func (e CodeError) EMsg() string { return e.Msg }

func (e CodeError) WithDetail(detail string) CodeError {
	var d string
	if e.Detail == "" {
		d = detail
	} else {
		d = e.Detail + ", " + detail
	}
	return CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: d,
	}
}

func (e CodeError) Wrap() error {
	return pkgerrors.WithStack(e)
}

// WrapMsg attaches a detail string (with optional kv pairs) and a stack.
func (e CodeError) WrapMsg(msg string, kv ...any) error {
	retErr := e
	if msg != "" || len(kv) > 0 {
		detail := toString(msg, kv)
		if retErr.Detail == "" {
			retErr.Detail = detail
		} else {
			retErr.Detail += ", " + detail
		}
	}
	return pkgerrors.WithStack(retErr)
}

// Is matches on the numeric code so wrapped and detailed variants of the
// same CodeError compare equal under errors.Is.
func (e CodeError) Is(err error) bool {
	var codeErr CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	return e.Code == codeErr.Code
}

func (e CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// CodeOf extracts the taxonomy code of err, or ServerInternalError when err
// carries no code.
func CodeOf(err error) int {
	var codeErr CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return ServerInternalError
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(pkgerrors.WithMessage(err, toString(msg, kv)))
}

func toString(msg string, kv []any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		}
	}
	return sb.String()
}
