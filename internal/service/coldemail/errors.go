package coldemail

import "fmt"

type Kind string

const (
	KindInvalidRequest       Kind = "invalid_request"
	KindCredentialsMissing   Kind = "credentials_missing"
	KindSubscriptionRequired Kind = "subscription_required"
	KindQuotaExceeded        Kind = "quota_exceeded"
	KindTransportFailure     Kind = "transport_failure"
)

// DispatchError is returned for every refused or failed send. Match a kind
// with errors.Is(err, ErrQuotaExceeded) and friends.
type DispatchError struct {
	Kind    Kind
	Message string

	// UpgradeRequired tells the UI to offer a plan upgrade.
	UpgradeRequired bool
	// QuotaExhausted tells the UI to show "try again tomorrow".
	QuotaExhausted bool
	Limit          int

	Err error
}

var (
	ErrInvalidRequest       = &DispatchError{Kind: KindInvalidRequest}
	ErrCredentialsMissing   = &DispatchError{Kind: KindCredentialsMissing}
	ErrSubscriptionRequired = &DispatchError{Kind: KindSubscriptionRequired}
	ErrQuotaExceeded        = &DispatchError{Kind: KindQuotaExceeded}
	ErrTransportFailure     = &DispatchError{Kind: KindTransportFailure}
)

func (e *DispatchError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is matches on Kind only.
func (e *DispatchError) Is(target error) bool {
	t, ok := target.(*DispatchError)
	return ok && t.Kind == e.Kind
}

func invalidRequest(msg string) *DispatchError {
	return &DispatchError{Kind: KindInvalidRequest, Message: msg}
}

func credentialsMissing() *DispatchError {
	return &DispatchError{
		Kind:    KindCredentialsMissing,
		Message: "configure your sending email address and app password before sending",
	}
}

func subscriptionRequired() *DispatchError {
	return &DispatchError{
		Kind:            KindSubscriptionRequired,
		Message:         "an active subscription is required to send cold emails",
		UpgradeRequired: true,
	}
}

func quotaExceeded(limit int) *DispatchError {
	return &DispatchError{
		Kind:            KindQuotaExceeded,
		Message:         fmt.Sprintf("daily limit of %d emails reached; it resets tomorrow, or upgrade your plan for a higher limit", limit),
		QuotaExhausted:  true,
		UpgradeRequired: true,
		Limit:           limit,
	}
}

func transportFailure(err error) *DispatchError {
	return &DispatchError{
		Kind:    KindTransportFailure,
		Message: "failed to send email",
		Err:     err,
	}
}
