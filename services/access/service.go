package access

import (
	"context"
	"net/url"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/mxvalidator/config"
	"github.com/customeros/mxvalidator/dto"
	"github.com/customeros/mxvalidator/interfaces"
	"github.com/customeros/mxvalidator/internal/enum"
	mxerrors "github.com/customeros/mxvalidator/internal/errors"
	"github.com/customeros/mxvalidator/internal/logger"
	"github.com/customeros/mxvalidator/internal/models"
	"github.com/customeros/mxvalidator/internal/repository"
	"github.com/customeros/mxvalidator/internal/tracing"
	"github.com/customeros/mxvalidator/internal/utils"
)

const (
	VerificationTokenLength = 48
	VerifyPath              = "/verify"
)

const (
	MsgRequiredFields    = "Name, company, and email are required."
	MsgInvalidEmail      = "Please provide a valid email address."
	MsgMissingDomain     = "Could not extract domain from email."
	MsgDomainNoMx        = "Email domain does not have valid MX records."
	MsgDomainUnreachable = "Email domain is not reachable or has no MX records."
)

type accessService struct {
	log      logger.Logger
	postgres *repository.Repositories
	resolver interfaces.DomainResolver
	mailer   interfaces.VerificationMailer
	baseURL  string
	secret   []byte
}

func NewAccessService(log logger.Logger, appConfig *config.AppConfig, postgres *repository.Repositories, resolver interfaces.DomainResolver, mailer interfaces.VerificationMailer) interfaces.AccessService {
	return &accessService{
		log:      log,
		postgres: postgres,
		resolver: resolver,
		mailer:   mailer,
		baseURL:  strings.TrimSuffix(appConfig.BaseURL, "/"),
		secret:   []byte(appConfig.CookieSecret),
	}
}

// Register records a pending registration and sends the verification link.
// Users that are already verified are let through without a new token.
func (s *accessService) Register(ctx context.Context, request dto.AccessRequest) (*dto.AccessRegistration, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AccessService.Register")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	name := strings.TrimSpace(request.Name)
	company := strings.TrimSpace(request.Company)
	email := strings.ToLower(strings.TrimSpace(request.Email))
	if name == "" || company == "" || email == "" {
		return nil, mxerrors.NewValidationError(MsgRequiredFields, "")
	}

	validation := mailvalidate.ValidateEmailSyntax(email)
	if !validation.IsValid {
		return nil, mxerrors.NewValidationError(MsgInvalidEmail, "")
	}
	if validation.CleanEmail != "" {
		email = strings.ToLower(validation.CleanEmail)
	}
	span.LogFields(tracingLog.String("email", email))

	domain := utils.ExtractDomainFromEmail(email)
	if domain == "" {
		return nil, mxerrors.NewValidationError(MsgMissingDomain, "")
	}

	resolution := s.resolver.Resolve(ctx, domain)
	switch resolution.Outcome {
	case enum.ResolutionEmpty:
		return nil, mxerrors.NewValidationError(MsgDomainNoMx, domain)
	case enum.ResolutionUnreachable:
		return nil, mxerrors.NewValidationError(MsgDomainUnreachable, domain)
	}

	existing, err := s.postgres.AccessUserRepository.GetByEmail(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mxerrors.NewStorageError("read access user", err)
	}
	if existing != nil && existing.IsVerified {
		span.LogFields(tracingLog.Bool("alreadyVerified", true))
		return &dto.AccessRegistration{Email: email, AlreadyVerified: true}, nil
	}

	token, err := utils.GenerateToken(VerificationTokenLength)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to generate verification token")
	}

	err = s.postgres.AccessUserRepository.Upsert(ctx, &models.AccessUser{
		Name:              name,
		Company:           company,
		Email:             email,
		VerificationToken: token,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mxerrors.NewStorageError("save access user", err)
	}

	link := s.verificationLink(token)
	if s.mailer != nil {
		err = s.mailer.SendVerification(ctx, dto.SendVerificationEmail{
			Email:            email,
			Name:             name,
			VerificationLink: link,
		})
		if err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("Failed to send verification email to %s: %v", email, err)
		}
	}

	return &dto.AccessRegistration{Email: email, VerificationLink: link}, nil
}

// Verify consumes a verification token and returns the verified email.
func (s *accessService) Verify(ctx context.Context, token string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AccessService.Verify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	token = strings.TrimSpace(token)
	if token == "" {
		return "", mxerrors.ErrInvalidToken
	}

	user, err := s.postgres.AccessUserRepository.VerifyByToken(ctx, token)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", mxerrors.NewStorageError("verify access user", err)
	}
	if user == nil {
		return "", mxerrors.ErrInvalidToken
	}

	tracing.TagEntity(span, user.ID)
	s.log.Infof("Access verified for %s", user.Email)
	return user.Email, nil
}

func (s *accessService) IsAuthorized(ctx context.Context, email string) bool {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AccessService.IsAuthorized")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if email == "" {
		return false
	}

	verified, err := s.postgres.AccessUserRepository.IsVerified(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Failed to check verification for %s: %v", email, err)
		return false
	}
	return verified
}

func (s *accessService) verificationLink(token string) string {
	return s.baseURL + VerifyPath + "?token=" + url.QueryEscape(token)
}
