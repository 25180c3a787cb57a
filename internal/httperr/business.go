package httperr

import "errors"

// Kind buckets a business error into the failure taxonomy the API and the
// settlement engine agree on. Codes stay free-form strings for clients;
// kinds decide HTTP status and retry policy.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindTransition     Kind = "invalid_transition"
	KindUnauthorized   Kind = "unauthorized"
	KindAmountMismatch Kind = "amount_mismatch"
	KindVoucher        Kind = "voucher_ineligible"
	KindRateLimited    Kind = "rate_limited"
	KindGateway        Kind = "gateway_error"
	KindConflict       Kind = "concurrency_conflict"
	KindNotFound       Kind = "not_found"
)

type BusinessError struct {
	Kind Kind
	Code string
}

func (e BusinessError) Error() string {
	return e.Code
}

func ErrBusiness(kind Kind, code string) error {
	return BusinessError{Kind: kind, Code: code}
}

func ErrValidation(code string) error     { return ErrBusiness(KindValidation, code) }
func ErrTransition(code string) error     { return ErrBusiness(KindTransition, code) }
func ErrUnauthorized(code string) error   { return ErrBusiness(KindUnauthorized, code) }
func ErrAmountMismatch(code string) error { return ErrBusiness(KindAmountMismatch, code) }
func ErrVoucher(code string) error        { return ErrBusiness(KindVoucher, code) }
func ErrRateLimited(code string) error    { return ErrBusiness(KindRateLimited, code) }
func ErrGateway(code string) error        { return ErrBusiness(KindGateway, code) }
func ErrConflict(code string) error       { return ErrBusiness(KindConflict, code) }
func ErrNotFound(code string) error       { return ErrBusiness(KindNotFound, code) }

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

func IsKind(err error, kind Kind) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

func KindOf(err error) (Kind, bool) {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}
