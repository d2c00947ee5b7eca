package identity

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	cip "github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
)

// ErrUnavailable marks failures to reach the identity provider at all, as
// opposed to the provider rejecting the request.
var ErrUnavailable = errors.New("identity provider unavailable")

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindUnconfirmedAccount
	KindUnknownUser
	KindInvalidCode
	KindExpiredCode
	KindUsernameTaken
	KindInvalidPassword
	KindInvalidParameter
	KindTooManyAttempts
	KindPasswordResetRequired
	KindChallengeRequired
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindInvalidCredentials:    "invalid_credentials",
	KindUnconfirmedAccount:    "unconfirmed_account",
	KindUnknownUser:           "unknown_user",
	KindInvalidCode:           "invalid_code",
	KindExpiredCode:           "expired_code",
	KindUsernameTaken:         "username_taken",
	KindInvalidPassword:       "invalid_password",
	KindInvalidParameter:      "invalid_parameter",
	KindTooManyAttempts:       "too_many_attempts",
	KindPasswordResetRequired: "password_reset_required",
	KindChallengeRequired:     "challenge_required",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// AuthError is the only error shape the identity boundary hands upward for
// provider rejections. Callers switch on Kind.
type AuthError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the operator.
func (e *AuthError) Message() string {
	switch e.Kind {
	case KindInvalidCredentials:
		return "Incorrect username or password"
	case KindUnconfirmedAccount:
		return "Please confirm your account"
	case KindUnknownUser:
		return "User does not exist"
	case KindInvalidCode:
		return "Invalid verification code"
	case KindExpiredCode:
		return "Verification code has expired"
	case KindUsernameTaken:
		return "An account with this email already exists"
	case KindInvalidPassword:
		return "Password does not meet requirements"
	case KindInvalidParameter:
		return "Invalid parameters provided"
	case KindTooManyAttempts:
		return "Too many attempts, try again later"
	case KindPasswordResetRequired:
		return "A password reset is required for this account"
	case KindChallengeRequired:
		return "Additional sign-in steps are required for this account"
	}
	switch e.Op {
	case "signup":
		return "Failed to sign up"
	case "confirm_signup":
		return "Failed to verify email"
	case "resend_code":
		return "Failed to resend verification code"
	case "forgot_password":
		return "Failed to send reset code"
	case "reset_password":
		return "Failed to reset password"
	}
	return "Failed to login"
}

// IsKind reports whether err carries an AuthError of kind k.
func IsKind(err error, k Kind) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Kind == k
}

var codeKinds = map[string]Kind{
	cip.ErrCodeNotAuthorizedException:         KindInvalidCredentials,
	cip.ErrCodeUserNotConfirmedException:      KindUnconfirmedAccount,
	cip.ErrCodeUserNotFoundException:          KindUnknownUser,
	cip.ErrCodeCodeMismatchException:          KindInvalidCode,
	cip.ErrCodeExpiredCodeException:           KindExpiredCode,
	cip.ErrCodeUsernameExistsException:        KindUsernameTaken,
	cip.ErrCodeAliasExistsException:           KindUsernameTaken,
	cip.ErrCodeInvalidPasswordException:       KindInvalidPassword,
	cip.ErrCodeInvalidParameterException:      KindInvalidParameter,
	cip.ErrCodeTooManyRequestsException:       KindTooManyAttempts,
	cip.ErrCodeTooManyFailedAttemptsException: KindTooManyAttempts,
	cip.ErrCodeLimitExceededException:         KindTooManyAttempts,
	cip.ErrCodePasswordResetRequiredException: KindPasswordResetRequired,
	cip.ErrCodeCodeDeliveryFailureException:   KindInvalidParameter,
}

var transportCodes = map[string]bool{
	request.ErrCodeRequestError:    true,
	request.CanceledErrorCode:      true,
	request.ErrCodeResponseTimeout: true,
	"RequestTimeout":               true,
	"InternalErrorException":       true,
	"ServiceUnavailable":           true,
}

// normalize converts an SDK error into AuthError or ErrUnavailable.
func normalize(op string, err error) error {
	if err == nil {
		return nil
	}
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	if transportCodes[aerr.Code()] {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	kind, ok := codeKinds[aerr.Code()]
	if !ok {
		kind = KindUnknown
	}
	return &AuthError{Kind: kind, Op: op, Err: errors.New(aerr.Message())}
}
