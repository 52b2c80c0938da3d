package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/and161185/orgdesk/internal/model"
	"github.com/and161185/orgdesk/internal/service"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r signInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r signUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
	)
}

type tokenResponse struct {
	Token string `json:"token"`
}

func newTokenResponse(t model.Tokens) tokenResponse {
	return tokenResponse{Token: t.AccessToken}
}

// SignIn handles POST /auth/signIn.
func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	tok, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(tok))
}

// SignUp handles POST /auth/signUp. Unknown fields such as "active" or
// "role" are ignored: self-registered accounts are always active members.
func (h *Handler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	tok, err := h.auth.SignUp(c.Request.Context(), service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTokenResponse(tok))
}
