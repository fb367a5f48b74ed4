package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mxvalidator/api/middleware"
	"github.com/customeros/mxvalidator/dto"
	"github.com/customeros/mxvalidator/interfaces"
	mxerrors "github.com/customeros/mxvalidator/internal/errors"
	"github.com/customeros/mxvalidator/internal/tracing"
	"github.com/customeros/mxvalidator/services/access"
)

const (
	MsgAlreadyVerified       = "Email already verified. You can access the tool."
	MsgVerificationEmailSent = "Verification email sent. Please check your inbox."

	verifyErrorInvalidToken = "invalid_token"
	verifyErrorExpiredToken = "invalid_or_expired_token"
	verifyErrorFailed       = "verification_failed"
)

type AccessResponse struct {
	Success         bool   `json:"success"`
	AlreadyVerified bool   `json:"alreadyVerified,omitempty"`
	Message         string `json:"message"`
}

type AccessHandler struct {
	access       interfaces.AccessService
	cookieSecure bool
}

func NewAccessHandler(access interfaces.AccessService, cookieSecure bool) *AccessHandler {
	return &AccessHandler{
		access:       access,
		cookieSecure: cookieSecure,
	}
}

// RequestAccess registers a user and sends the verification link.
func (h *AccessHandler) RequestAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccessHandler.RequestAccess")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req dto.AccessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgInvalidRequestBody})
			return
		}

		registration, err := h.access.Register(ctx, req)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		if registration.AlreadyVerified {
			c.JSON(http.StatusOK, AccessResponse{Success: true, AlreadyVerified: true, Message: MsgAlreadyVerified})
			return
		}
		c.JSON(http.StatusOK, AccessResponse{Success: true, Message: MsgVerificationEmailSent})
	}
}

// VerifyEmail consumes the link from the verification email, sets the
// access cookie and sends the browser back to the app.
func (h *AccessHandler) VerifyEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccessHandler.VerifyEmail")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		token := c.Query("token")
		if token == "" {
			redirectWithError(c, verifyErrorInvalidToken)
			return
		}

		email, err := h.access.Verify(ctx, token)
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, mxerrors.ErrInvalidToken) {
				redirectWithError(c, verifyErrorExpiredToken)
			} else {
				redirectWithError(c, verifyErrorFailed)
			}
			return
		}

		accessToken, err := h.access.IssueAccessToken(email)
		if err != nil {
			tracing.TraceErr(span, err)
			redirectWithError(c, verifyErrorFailed)
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.CookieVerifiedEmail, accessToken, int(access.AccessTokenTTL.Seconds()), "/", "", h.cookieSecure, true)
		c.Redirect(http.StatusFound, "/?verified=true")
	}
}

func (h *AccessHandler) CheckVerification() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, verified := middleware.VerifiedEmail(c, middleware.CookieVerifiedEmail, h.access)
		c.JSON(http.StatusOK, gin.H{"verified": verified})
	}
}

func redirectWithError(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, "/?error="+url.QueryEscape(code))
}
