package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	cip "github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider/cognitoidentityprovideriface"
	"github.com/sdko-org/uptime-dashboard/internal/config"
	"github.com/sirupsen/logrus"
)

type Cognito struct {
	api          cognitoidentityprovideriface.CognitoIdentityProviderAPI
	clientID     string
	clientSecret string
	log          *logrus.Entry
	now          func() time.Time
}

func NewCognito(logger *logrus.Logger, cfg *config.Config) (*Cognito, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.IdentityRegion()),
	}
	if cfg.CognitoEndpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.CognitoEndpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	c := NewCognitoWithAPI(logger, cip.New(sess), cfg.CognitoClientID, cfg.CognitoClientSecret)
	c.log = c.log.WithFields(logrus.Fields{
		"region":       cfg.IdentityRegion(),
		"user_pool_id": cfg.CognitoUserPoolID,
	})
	return c, nil
}

func NewCognitoWithAPI(logger *logrus.Logger, api cognitoidentityprovideriface.CognitoIdentityProviderAPI, clientID, clientSecret string) *Cognito {
	return &Cognito{
		api:          api,
		clientID:     clientID,
		clientSecret: clientSecret,
		log:          logger.WithField("component", "cognito"),
		now:          time.Now,
	}
}

func (c *Cognito) secretHash(username string) *string {
	if c.clientSecret == "" {
		return nil
	}
	return aws.String(SecretHash(username, c.clientID, c.clientSecret))
}

func (c *Cognito) authParams(username string, params map[string]*string) map[string]*string {
	if hash := c.secretHash(username); hash != nil {
		params["SECRET_HASH"] = hash
	}
	return params
}

func (c *Cognito) Authenticate(ctx context.Context, identifier, secret string) (*Tokens, error) {
	out, err := c.api.InitiateAuthWithContext(ctx, &cip.InitiateAuthInput{
		AuthFlow:       aws.String(cip.AuthFlowTypeUserPasswordAuth),
		ClientId:       aws.String(c.clientID),
		AuthParameters: c.authParams(identifier, map[string]*string{
			"USERNAME": aws.String(identifier),
			"PASSWORD": aws.String(secret),
		}),
	})
	if err != nil {
		c.log.WithFields(logrus.Fields{"operation": "login", "error": err}).Debug("Authentication rejected")
		return nil, normalize("login", err)
	}
	if out.AuthenticationResult == nil {
		return nil, &AuthError{
			Kind: KindChallengeRequired,
			Op:   "login",
			Err:  fmt.Errorf("challenge %s", aws.StringValue(out.ChallengeName)),
		}
	}
	return c.tokens(out.AuthenticationResult, ""), nil
}

func (c *Cognito) Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error) {
	out, err := c.api.InitiateAuthWithContext(ctx, &cip.InitiateAuthInput{
		AuthFlow:       aws.String(cip.AuthFlowTypeRefreshTokenAuth),
		ClientId:       aws.String(c.clientID),
		AuthParameters: c.authParams(username, map[string]*string{
			"REFRESH_TOKEN": aws.String(refreshToken),
		}),
	})
	if err != nil {
		return nil, normalize("refresh", err)
	}
	if out.AuthenticationResult == nil {
		return nil, &AuthError{Kind: KindChallengeRequired, Op: "refresh"}
	}
	// Cognito does not rotate refresh tokens on this flow.
	return c.tokens(out.AuthenticationResult, refreshToken), nil
}

func (c *Cognito) tokens(res *cip.AuthenticationResultType, refreshToken string) *Tokens {
	t := &Tokens{
		IDToken:      aws.StringValue(res.IdToken),
		AccessToken:  aws.StringValue(res.AccessToken),
		RefreshToken: aws.StringValue(res.RefreshToken),
		ExpiresAt:    c.now().Add(time.Duration(aws.Int64Value(res.ExpiresIn)) * time.Second),
	}
	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	return t
}

func (c *Cognito) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	out, err := c.api.GetUserWithContext(ctx, &cip.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return nil, normalize("profile", err)
	}

	p := &Profile{Username: aws.StringValue(out.Username)}
	for _, attr := range out.UserAttributes {
		value := aws.StringValue(attr.Value)
		switch aws.StringValue(attr.Name) {
		case "sub":
			p.Sub = value
		case "email":
			p.Email = value
		case "name":
			p.Name = value
		case "given_name":
			p.GivenName = value
		case "family_name":
			p.FamilyName = value
		}
	}
	return p, nil
}

func (c *Cognito) Register(ctx context.Context, reg Registration) (*SignupResult, error) {
	attrs := []*cip.AttributeType{
		{Name: aws.String("email"), Value: aws.String(reg.Email)},
	}
	if reg.GivenName != "" || reg.FamilyName != "" {
		attrs = append(attrs,
			&cip.AttributeType{Name: aws.String("name"), Value: aws.String(joinName(reg.GivenName, reg.FamilyName))},
			&cip.AttributeType{Name: aws.String("given_name"), Value: aws.String(reg.GivenName)},
			&cip.AttributeType{Name: aws.String("family_name"), Value: aws.String(reg.FamilyName)},
		)
	}

	out, err := c.api.SignUpWithContext(ctx, &cip.SignUpInput{
		ClientId:       aws.String(c.clientID),
		SecretHash:     c.secretHash(reg.Username),
		Username:       aws.String(reg.Username),
		Password:       aws.String(reg.Password),
		UserAttributes: attrs,
	})
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"operation": "signup",
			"username":  reg.Username,
			"error":     err,
		}).Warn("Signup rejected")
		return nil, normalize("signup", err)
	}

	res := &SignupResult{
		Username:  reg.Username,
		UserSub:   aws.StringValue(out.UserSub),
		Confirmed: aws.BoolValue(out.UserConfirmed),
	}
	if out.CodeDeliveryDetails != nil {
		res.CodeDestination = aws.StringValue(out.CodeDeliveryDetails.Destination)
	}
	return res, nil
}

func (c *Cognito) ConfirmRegistration(ctx context.Context, username, code string) error {
	_, err := c.api.ConfirmSignUpWithContext(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		SecretHash:       c.secretHash(username),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
	})
	return normalize("confirm_signup", err)
}

func (c *Cognito) ResendCode(ctx context.Context, username string) (string, error) {
	out, err := c.api.ResendConfirmationCodeWithContext(ctx, &cip.ResendConfirmationCodeInput{
		ClientId:   aws.String(c.clientID),
		SecretHash: c.secretHash(username),
		Username:   aws.String(username),
	})
	if err != nil {
		return "", normalize("resend_code", err)
	}
	if out.CodeDeliveryDetails == nil {
		return "", nil
	}
	return aws.StringValue(out.CodeDeliveryDetails.Destination), nil
}

func (c *Cognito) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.api.GlobalSignOutWithContext(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	return normalize("logout", err)
}

func (c *Cognito) ForgotPassword(ctx context.Context, identifier string) (string, error) {
	out, err := c.api.ForgotPasswordWithContext(ctx, &cip.ForgotPasswordInput{
		ClientId:   aws.String(c.clientID),
		SecretHash: c.secretHash(identifier),
		Username:   aws.String(identifier),
	})
	if err != nil {
		return "", normalize("forgot_password", err)
	}
	if out.CodeDeliveryDetails == nil {
		return "", nil
	}
	return aws.StringValue(out.CodeDeliveryDetails.Destination), nil
}

func (c *Cognito) ConfirmForgotPassword(ctx context.Context, identifier, code, newSecret string) error {
	_, err := c.api.ConfirmForgotPasswordWithContext(ctx, &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(c.clientID),
		SecretHash:       c.secretHash(identifier),
		Username:         aws.String(identifier),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newSecret),
	})
	return normalize("reset_password", err)
}

func joinName(given, family string) string {
	switch {
	case given == "":
		return family
	case family == "":
		return given
	}
	return given + " " + family
}
