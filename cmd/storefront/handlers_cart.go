package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/auth"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/httpx"
)

var errLineNotFound = cart.ErrLineNotFound.WithRedirect("/cart")

func cartIdentity(c *gin.Context) (cart.Identity, bool) {
	id, ok := auth.Current(c).CartIdentity()
	if !ok {
		httpx.Error(c, auth.ErrLoginRequired)
	}
	return id, ok
}

// viewCartHandler godoc
// @Summary  View cart with live prices
// @Tags     cart
// @Success  200 {object} cart.View
// @Router   /cart [get]
func viewCartHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := cartIdentity(c)
		if !ok {
			return
		}
		v, err := svc.View(c.Request.Context(), id)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func addCartItemHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := cartIdentity(c)
		if !ok {
			return
		}
		var in cart.AddInput
		if !httpx.Bind(c, &in) {
			return
		}
		qty := 1
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		ctx := c.Request.Context()
		item, err := svc.AddItem(ctx, id, in.ProductID, qty)
		if err != nil {
			httpx.Error(c, withRedirect(err, "/products"))
			return
		}
		v, err := svc.View(ctx, id)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"item": item, "cart": v})
	}
}

func updateCartItemHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := cartIdentity(c)
		if !ok {
			return
		}
		productID, ok := paramID(c, "product_id", errLineNotFound)
		if !ok {
			return
		}
		var in cart.UpdateInput
		if !httpx.Bind(c, &in) {
			return
		}
		ctx := c.Request.Context()
		item, err := svc.SetQuantity(ctx, id, productID, in.Action)
		if err != nil {
			httpx.Error(c, withRedirect(err, "/cart"))
			return
		}
		v, err := svc.View(ctx, id)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"item": item, "removed": item == nil, "cart": v})
	}
}

func removeCartItemHandler(svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := cartIdentity(c)
		if !ok {
			return
		}
		productID, ok := paramID(c, "product_id", errLineNotFound)
		if !ok {
			return
		}
		if err := svc.RemoveItem(c.Request.Context(), id, productID); err != nil {
			httpx.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
