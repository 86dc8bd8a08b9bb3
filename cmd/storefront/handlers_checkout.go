package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/auth"
	"github.com/MikeMC777/storefront/internal/checkout"
	"github.com/MikeMC777/storefront/internal/httpx"
)

// checkoutDraftHandler godoc
// @Summary  Checkout page data: cart lines, total and prefilled form
// @Tags     checkout
// @Success  200 {object} checkout.Draft
// @Failure  409 {object} httpx.ErrorBody
// @Router   /checkout [get]
func checkoutDraftHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := svc.Draft(c.Request.Context(), auth.Current(c).UserID())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

func checkoutSubmitHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form checkout.Form
		if !httpx.Bind(c, &form) {
			return
		}
		p := auth.Current(c)
		res, err := svc.Submit(c.Request.Context(), p.SessionID, p.UserID(), form)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		if res.Order != nil {
			c.JSON(http.StatusCreated, res)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func checkoutConfirmHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.Current(c)
		o, err := svc.Confirm(c.Request.Context(), p.SessionID, p.UserID())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

func checkoutAbandonHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Abandon(c.Request.Context(), auth.Current(c).SessionID); err != nil {
			httpx.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
