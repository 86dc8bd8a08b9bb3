package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/activity"
	"github.com/MikeMC777/storefront/internal/auth"
	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/order"
)

var errAdminOrderNotFound = order.ErrNotFound.WithRedirect("/admin/orders")

func listMyOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.ListForUser(c.Request.Context(), auth.Current(c).UserID(),
			queryInt(c, "limit", 0), queryInt(c, "offset", 0))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

// getMyOrderHandler godoc
// @Summary  Own order detail; other users' orders are reported as missing
// @Tags     orders
// @Param    id path int true "order id"
// @Success  200 {object} order.Order
// @Failure  404 {object} httpx.ErrorBody
// @Router   /orders/{id} [get]
func getMyOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", order.ErrNotFound)
		if !ok {
			return
		}
		o, err := svc.GetForUser(c.Request.Context(), id, auth.Current(c).UserID())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func adminListOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := order.Filter{
			Status: order.Status(c.Query("status")),
			Limit:  queryInt(c, "limit", 0),
			Offset: queryInt(c, "offset", 0),
		}
		out, err := svc.List(c.Request.Context(), f)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

func adminGetOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", errAdminOrderNotFound)
		if !ok {
			return
		}
		o, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			httpx.Error(c, withAdminOrderRedirect(err))
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func withAdminOrderRedirect(err error) error {
	if errors.Is(err, order.ErrNotFound) {
		return errAdminOrderNotFound
	}
	return err
}

func updateOrderStatusHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", errAdminOrderNotFound)
		if !ok {
			return
		}
		var in order.StatusInput
		if !httpx.Bind(c, &in) {
			return
		}
		o, err := svc.UpdateStatus(c.Request.Context(), auth.Current(c).UserID(), id, in.Status)
		if err != nil {
			httpx.Error(c, withAdminOrderRedirect(err))
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func cancelOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", errAdminOrderNotFound)
		if !ok {
			return
		}
		o, err := svc.Cancel(c.Request.Context(), auth.Current(c).UserID(), id)
		if err != nil {
			httpx.Error(c, withAdminOrderRedirect(err))
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// dashboardHandler godoc
// @Summary  Back-office counters and the latest activity
// @Tags     admin
// @Success  200 {object} order.Stats
// @Router   /admin/dashboard [get]
func dashboardHandler(orders *order.Service, audit *activity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		st, err := orders.Stats(ctx)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		recent, err := audit.Recent(ctx, 10)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stats": st, "activity": recent})
	}
}

func activityHandler(audit *activity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := audit.Recent(c.Request.Context(), queryInt(c, "limit", 0))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}
