package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/docgate/docgate/internal/server/models"
	"github.com/gin-gonic/gin"
)

func (a *API) ListAccounts(c *gin.Context) {
	var filter models.AccountFilter

	if s := c.Query("status"); s != "" {
		status, err := models.ParseRegistrationStatus(s)
		if err != nil {
			a.fail(c, badRequest("status must be one of pending, approved, rejected"))
			return
		}
		filter.Status = &status
	}
	if s := c.Query("role"); s != "" {
		role, err := models.ParseRole(s)
		if err != nil {
			a.fail(c, badRequest("role must be one of user, admin"))
			return
		}
		filter.Role = &role
	}

	list, err := a.accounts.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		a.fail(c, err)
		return
	}

	out := make([]accountDTO, 0, len(list))
	for _, acc := range list {
		out = append(out, toAccountDTO(acc))
	}
	ok(c, http.StatusOK, out, "")
}

func (a *API) ApproveAccount(c *gin.Context) {
	account, err := a.accounts.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	ok(c, http.StatusOK, toAccountDTO(account), "account approved")
}

func (a *API) RejectAccount(c *gin.Context) {
	var req rejectRequest
	// The body is optional.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		a.fail(c, badRequest("invalid request body"))
		return
	}

	account, err := a.accounts.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		a.fail(c, err)
		return
	}
	ok(c, http.StatusOK, toAccountDTO(account), "account rejected")
}

func (a *API) DeleteAccount(c *gin.Context) {
	actor, _ := IdentityFrom(c)

	if err := a.accounts.DeleteAccount(c.Request.Context(), *actor, c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	ok(c, http.StatusOK, nil, "account deleted")
}
