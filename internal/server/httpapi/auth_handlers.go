package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, badRequest("invalid request body"))
		return
	}

	account, err := a.accounts.Register(c.Request.Context(), req.Email, req.Password, req.RegistrationDetails)
	if err != nil {
		a.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, toAccountDTO(account), "registration received; an administrator will review it")
}

func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, badRequest("email and password are required"))
		return
	}

	res, err := a.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(c, err)
		return
	}
	ok(c, http.StatusOK, loginDTO{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Account:   toAccountDTO(res.Account),
	}, "")
}

func (a *API) Me(c *gin.Context) {
	id, _ := IdentityFrom(c)

	account, err := a.accounts.GetAccount(c.Request.Context(), id.SubjectID)
	if err != nil {
		a.fail(c, err)
		return
	}
	ok(c, http.StatusOK, toAccountDTO(account), "")
}
