package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	cip "github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider/cognitoidentityprovideriface"
	"github.com/sdko-org/uptime-dashboard/internal/logging"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeCognito struct {
	cognitoidentityprovideriface.CognitoIdentityProviderAPI

	initiateInputs []*cip.InitiateAuthInput
	initiateOut    *cip.InitiateAuthOutput
	initiateErr    error
	signUpInput    *cip.SignUpInput
	signUpErr      error
	confirmErr     error
	signOutErr     error
}

func (f *fakeCognito) InitiateAuthWithContext(_ aws.Context, in *cip.InitiateAuthInput, _ ...request.Option) (*cip.InitiateAuthOutput, error) {
	f.initiateInputs = append(f.initiateInputs, in)
	return f.initiateOut, f.initiateErr
}

func (f *fakeCognito) SignUpWithContext(_ aws.Context, in *cip.SignUpInput, _ ...request.Option) (*cip.SignUpOutput, error) {
	f.signUpInput = in
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &cip.SignUpOutput{
		UserSub:             aws.String("sub-1"),
		UserConfirmed:       aws.Bool(false),
		CodeDeliveryDetails: &cip.CodeDeliveryDetailsType{Destination: aws.String("u***@example.com")},
	}, nil
}

func (f *fakeCognito) ConfirmSignUpWithContext(_ aws.Context, _ *cip.ConfirmSignUpInput, _ ...request.Option) (*cip.ConfirmSignUpOutput, error) {
	return &cip.ConfirmSignUpOutput{}, f.confirmErr
}

func (f *fakeCognito) GlobalSignOutWithContext(_ aws.Context, _ *cip.GlobalSignOutInput, _ ...request.Option) (*cip.GlobalSignOutOutput, error) {
	return &cip.GlobalSignOutOutput{}, f.signOutErr
}

func (f *fakeCognito) GetUserWithContext(_ aws.Context, _ *cip.GetUserInput, _ ...request.Option) (*cip.GetUserOutput, error) {
	return &cip.GetUserOutput{
		Username: aws.String("user_1"),
		UserAttributes: []*cip.AttributeType{
			{Name: aws.String("sub"), Value: aws.String("sub-1")},
			{Name: aws.String("email"), Value: aws.String("ops@example.com")},
			{Name: aws.String("given_name"), Value: aws.String("Ada")},
		},
	}, nil
}

func newTestCognito(api cognitoidentityprovideriface.CognitoIdentityProviderAPI, secret string) *Cognito {
	c := NewCognitoWithAPI(logging.Discard(), api, "client-id", secret)
	c.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCognitoAuthenticate(t *testing.T) {
	Convey("Given a Cognito client with an app secret", t, func() {
		api := &fakeCognito{}
		c := newTestCognito(api, "s3cret")
		ctx := context.Background()

		Convey("When the credentials are accepted", func() {
			api.initiateOut = &cip.InitiateAuthOutput{AuthenticationResult: &cip.AuthenticationResultType{
				IdToken:      aws.String("id"),
				AccessToken:  aws.String("access"),
				RefreshToken: aws.String("refresh"),
				ExpiresIn:    aws.Int64(3600),
			}}
			tokens, err := c.Authenticate(ctx, "ops@example.com", "pw")

			Convey("Then tokens and expiry are returned", func() {
				So(err, ShouldBeNil)
				So(tokens.IDToken, ShouldEqual, "id")
				So(tokens.RefreshToken, ShouldEqual, "refresh")
				So(tokens.ExpiresAt.Equal(time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})

			Convey("And the request carries the password flow and secret hash", func() {
				in := api.initiateInputs[0]
				So(aws.StringValue(in.AuthFlow), ShouldEqual, cip.AuthFlowTypeUserPasswordAuth)
				So(aws.StringValue(in.AuthParameters["SECRET_HASH"]), ShouldEqual, SecretHash("ops@example.com", "client-id", "s3cret"))
			})
		})

		Convey("When the password is wrong", func() {
			api.initiateErr = awserr.New(cip.ErrCodeNotAuthorizedException, "Incorrect username or password.", nil)
			_, err := c.Authenticate(ctx, "ops@example.com", "wrongpw")

			Convey("Then an InvalidCredentials AuthError is returned", func() {
				So(IsKind(err, KindInvalidCredentials), ShouldBeTrue)
				var authErr *AuthError
				So(errors.As(err, &authErr), ShouldBeTrue)
				So(authErr.Message(), ShouldEqual, "Incorrect username or password")
			})
		})

		Convey("When the account is unconfirmed", func() {
			api.initiateErr = awserr.New(cip.ErrCodeUserNotConfirmedException, "User is not confirmed.", nil)
			_, err := c.Authenticate(ctx, "ops@example.com", "pw")

			So(IsKind(err, KindUnconfirmedAccount), ShouldBeTrue)
		})

		Convey("When the network fails", func() {
			api.initiateErr = awserr.New(request.ErrCodeRequestError, "send request failed", errors.New("dial tcp: no route"))
			_, err := c.Authenticate(ctx, "ops@example.com", "pw")

			Convey("Then the error is a transport failure, not an AuthError", func() {
				So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
				var authErr *AuthError
				So(errors.As(err, &authErr), ShouldBeFalse)
			})
		})

		Convey("When Cognito answers with a challenge", func() {
			api.initiateOut = &cip.InitiateAuthOutput{ChallengeName: aws.String("NEW_PASSWORD_REQUIRED")}
			_, err := c.Authenticate(ctx, "ops@example.com", "pw")

			So(IsKind(err, KindChallengeRequired), ShouldBeTrue)
		})
	})
}

func TestCognitoRefresh(t *testing.T) {
	Convey("Given a refresh that does not rotate the refresh token", t, func() {
		api := &fakeCognito{initiateOut: &cip.InitiateAuthOutput{AuthenticationResult: &cip.AuthenticationResultType{
			IdToken:     aws.String("id2"),
			AccessToken: aws.String("access2"),
			ExpiresIn:   aws.Int64(60),
		}}}
		c := newTestCognito(api, "")

		tokens, err := c.Refresh(context.Background(), "user_1", "refresh")

		Convey("Then the previous refresh token is kept", func() {
			So(err, ShouldBeNil)
			So(tokens.IDToken, ShouldEqual, "id2")
			So(tokens.RefreshToken, ShouldEqual, "refresh")
			So(api.initiateInputs[0].AuthParameters, ShouldNotContainKey, "SECRET_HASH")
		})
	})
}

func TestCognitoRegister(t *testing.T) {
	Convey("Given a registration", t, func() {
		api := &fakeCognito{}
		c := newTestCognito(api, "")

		res, err := c.Register(context.Background(), Registration{
			Username:   "user_1",
			Email:      "ops@example.com",
			Password:   "longenough",
			GivenName:  "Ada",
			FamilyName: "Lovelace",
		})

		Convey("Then the internal username and derived attributes are sent", func() {
			So(err, ShouldBeNil)
			So(res.Username, ShouldEqual, "user_1")
			So(res.CodeDestination, ShouldEqual, "u***@example.com")
			So(aws.StringValue(api.signUpInput.Username), ShouldEqual, "user_1")
			names := map[string]string{}
			for _, a := range api.signUpInput.UserAttributes {
				names[aws.StringValue(a.Name)] = aws.StringValue(a.Value)
			}
			So(names["name"], ShouldEqual, "Ada Lovelace")
			So(names["email"], ShouldEqual, "ops@example.com")
		})

		Convey("When the username is taken", func() {
			api.signUpErr = awserr.New(cip.ErrCodeUsernameExistsException, "exists", nil)
			_, err := c.Register(context.Background(), Registration{Username: "user_1", Email: "x@example.com"})

			So(IsKind(err, KindUsernameTaken), ShouldBeTrue)
		})
	})
}

func TestCognitoConfirmErrors(t *testing.T) {
	Convey("Given confirmation failures", t, func() {
		api := &fakeCognito{}
		c := newTestCognito(api, "")
		ctx := context.Background()

		cases := map[string]Kind{
			cip.ErrCodeCodeMismatchException: KindInvalidCode,
			cip.ErrCodeExpiredCodeException:  KindExpiredCode,
			cip.ErrCodeUserNotFoundException: KindUnknownUser,
		}
		for code, kind := range cases {
			api.confirmErr = awserr.New(code, "rejected", nil)
			So(IsKind(c.ConfirmRegistration(ctx, "user_1", "123456"), kind), ShouldBeTrue)
		}

		api.confirmErr = nil
		So(c.ConfirmRegistration(ctx, "user_1", "123456"), ShouldBeNil)
	})
}

func TestCognitoProfile(t *testing.T) {
	Convey("Given a signed-in user", t, func() {
		c := newTestCognito(&fakeCognito{}, "")

		p, err := c.Profile(context.Background(), "access")

		So(err, ShouldBeNil)
		So(p.Username, ShouldEqual, "user_1")
		So(p.Email, ShouldEqual, "ops@example.com")
		So(p.GivenName, ShouldEqual, "Ada")
	})
}

func TestSecretHash(t *testing.T) {
	Convey("SecretHash is deterministic and keyed on the secret", t, func() {
		a := SecretHash("user", "client", "secret")
		So(a, ShouldEqual, SecretHash("user", "client", "secret"))
		So(a, ShouldNotEqual, SecretHash("user", "client", "other"))
		So(len(a), ShouldEqual, 44)
	})
}
