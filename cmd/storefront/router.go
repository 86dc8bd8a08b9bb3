package main

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/MikeMC777/storefront/docs"
	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/auth"
	"github.com/MikeMC777/storefront/internal/httpx"
)

func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(), httpx.CORS(a.cfg.CORS.AllowOrigins))
	r.Use(auth.Authenticate(a.issuer, a.sessions, a.users))

	r.GET("/healthz", healthHandler(a.ping))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/products", listProductsHandler(a.catalog))
	r.GET("/products/:id", getProductHandler(a.catalog))
	r.GET("/categories", listCategoriesHandler(a.catalog))

	cartGroup := r.Group("/cart", auth.RequireSession())
	cartGroup.GET("", viewCartHandler(a.carts))
	cartGroup.POST("/items", addCartItemHandler(a.carts))
	cartGroup.PATCH("/items/:product_id", updateCartItemHandler(a.carts))
	cartGroup.DELETE("/items/:product_id", removeCartItemHandler(a.carts))

	co := r.Group("/checkout", auth.RequireCustomer())
	co.GET("", checkoutDraftHandler(a.checkout))
	co.POST("", checkoutSubmitHandler(a.checkout))
	co.POST("/confirm", checkoutConfirmHandler(a.checkout))
	co.DELETE("/pending", checkoutAbandonHandler(a.checkout))

	orders := r.Group("/orders", auth.RequireCustomer())
	orders.GET("", listMyOrdersHandler(a.orders))
	orders.GET("/:id", getMyOrderHandler(a.orders))

	r.POST("/auth/register", registerHandler(a.users))
	r.POST("/auth/login", loginHandler(a.users, a.carts, a.issuer))
	r.POST("/auth/logout", logoutHandler(a.sessions))
	r.POST("/auth/guest", guestHandler(a.issuer))

	profile := r.Group("/profile", auth.RequireCustomer())
	profile.GET("", getProfileHandler(a.users))
	profile.PUT("", updateProfileHandler(a.users))

	admin := r.Group("/admin", auth.RequireAdmin())
	admin.GET("/products", listProductsHandler(a.catalog))
	admin.POST("/products", createProductHandler(a.catalog))
	admin.GET("/products/:id", getProductHandler(a.catalog))
	admin.PUT("/products/:id", updateProductHandler(a.catalog))
	admin.DELETE("/products/:id", deleteProductHandler(a.catalog))
	admin.PUT("/products/:id/categories", setProductCategoriesHandler(a.catalog))

	admin.GET("/categories", listCategoriesHandler(a.catalog))
	admin.POST("/categories", createCategoryHandler(a.catalog))
	admin.PUT("/categories/:id", updateCategoryHandler(a.catalog))
	admin.DELETE("/categories/:id", deleteCategoryHandler(a.catalog))

	admin.GET("/orders", adminListOrdersHandler(a.orders))
	admin.GET("/orders/:id", adminGetOrderHandler(a.orders))
	admin.PUT("/orders/:id/status", updateOrderStatusHandler(a.orders))
	admin.POST("/orders/:id/cancel", cancelOrderHandler(a.orders))

	admin.GET("/users", listUsersHandler(a.users))
	admin.PUT("/users/:id/role", setUserRoleHandler(a.users))

	admin.GET("/dashboard", dashboardHandler(a.orders, a.activity))
	admin.GET("/activity", activityHandler(a.activity))
	admin.GET("/export/products.xlsx", exportProductsHandler(a.catalog))
	admin.GET("/export/orders.xlsx", exportOrdersHandler(a.orders))
	admin.POST("/import/products.xlsx", importProductsHandler(a.catalog))
	admin.GET("/feed", feedHandler(a.hub))

	r.NoRoute(func(c *gin.Context) {
		httpx.Error(c, apperr.NotFound("page not found"))
	})
	return r
}

// paramID parses a positive id path parameter. Anything else is reported as
// notFound so that /products/abc behaves like a missing product.
func paramID(c *gin.Context, name string, notFound error) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(c, notFound)
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query value, def when absent or malformed.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			log.Printf("[health] rid=%s db ping: %v", httpx.RID(c), err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// withRedirect points a not-found error at path unless it already has one.
func withRedirect(err error, path string) error {
	if e, ok := apperr.As(err); ok && e.Code == apperr.ENOTFOUND && e.Redirect == "" {
		return e.WithRedirect(path)
	}
	return err
}
