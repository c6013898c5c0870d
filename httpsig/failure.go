package httpsig

import (
	"errors"
	"fmt"
)

// FailureCode is the stable identifier of a verification failure.
type FailureCode string

const (
	CodeInvalidSignature          FailureCode = "INVALID_SIGNATURE"
	CodeInvalidClient             FailureCode = "INVALID_CLIENT"
	CodeInvalidSignatureAlgorithm FailureCode = "INVALID_SIGNATURE_ALGORITHM"
	CodeInvalidCreatedHeader      FailureCode = "INVALID_CREATED_HEADER"
	CodeInvalidExpiresHeader      FailureCode = "INVALID_EXPIRES_HEADER"
	CodeHeaderMissing             FailureCode = "HEADER_MISSING"
	CodeSignatureExpired          FailureCode = "SIGNATURE_EXPIRED"
	CodeInvalidDigestHeader       FailureCode = "INVALID_DIGEST_HEADER"
	CodeInvalidNonce              FailureCode = "INVALID_NONCE"
	CodeInvalidSignatureString    FailureCode = "INVALID_SIGNATURE_STRING"
)

// String returns the code.
func (c FailureCode) String() string {
	return string(c)
}

// Failure is the outcome of a rejected verification. A nil *Failure means
// success.
type Failure struct {
	Code    FailureCode
	Message string

	// Err is the optional underlying cause.
	Err error
}

func newFailure(code FailureCode, format string, args ...any) *Failure {
	return &Failure{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (f *Failure) withCause(err error) *Failure {
	f.Err = err
	return f
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("httpsig: %s: %s", f.Code, f.Message)
	}

	return fmt.Sprintf("httpsig: %s: %s: %v", f.Code, f.Message, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches another *Failure with the same code, so that
// errors.Is(err, &Failure{Code: CodeInvalidNonce}) works.
func (f *Failure) Is(target error) bool {
	var t *Failure
	if !errors.As(target, &t) {
		return false
	}

	return t.Code == f.Code
}

// FailureCodeOf returns the code of the first *Failure in err's chain, or
// the empty code.
func FailureCodeOf(err error) FailureCode {
	var f *Failure
	if errors.As(err, &f) {
		return f.Code
	}

	return ""
}
