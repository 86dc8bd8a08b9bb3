package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/auth"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/httpx"
)

var (
	errProductNotFound  = catalog.ErrProductNotFound.WithRedirect("/products")
	errCategoryNotFound = catalog.ErrCategoryNotFound.WithRedirect("/products")
)

// listProductsHandler godoc
// @Summary  List products
// @Tags     catalog
// @Param    q        query string false "name or description substring"
// @Param    sort     query string false "price_low|price_high|newest|oldest"
// @Param    category query int    false "category id"
// @Param    limit    query int    false "page size (default 20, max 100)"
// @Param    offset   query int    false "offset"
// @Success  200 {object} catalog.ListResponse
// @Router   /products [get]
func listProductsHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := catalog.Query{
			Q:          c.Query("q"),
			Sort:       catalog.Sort(c.Query("sort")),
			CategoryID: int64(queryInt(c, "category", 0)),
			Limit:      queryInt(c, "limit", 0),
			Offset:     queryInt(c, "offset", 0),
		}.Normalize()

		items, err := svc.List(c.Request.Context(), q)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, catalog.ListResponse{
			Q:          q.Q,
			Sort:       q.Sort,
			CategoryID: q.CategoryID,
			Limit:      q.Limit,
			Offset:     q.Offset,
			Items:      items,
		})
	}
}

func getProductHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", errProductNotFound)
		if !ok {
			return
		}
		p, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			httpx.Error(c, withRedirect(err, "/products"))
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func listCategoriesHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.Categories(c.Request.Context())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

func createProductHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in catalog.ProductInput
		if !httpx.Bind(c, &in) {
			return
		}
		p, err := svc.CreateProduct(c.Request.Context(), auth.Current(c).UserID(), in)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func updateProductHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", errProductNotFound)
		if !ok {
			return
		}
		var in catalog.ProductInput
		if !httpx.Bind(c, &in) {
			return
		}
		p, err := svc.UpdateProduct(c.Request.Context(), auth.Current(c).UserID(), id, in)
		if err != nil {
			httpx.Error(c, withRedirect(err, "/admin/products"))
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func deleteProductHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", errProductNotFound)
		if !ok {
			return
		}
		if err := svc.DeleteProduct(c.Request.Context(), auth.Current(c).UserID(), id); err != nil {
			httpx.Error(c, withRedirect(err, "/admin/products"))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type categoryIDsInput struct {
	CategoryIDs []int64 `json:"category_ids" binding:"required"`
}

func setProductCategoriesHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", errProductNotFound)
		if !ok {
			return
		}
		var in categoryIDsInput
		if !httpx.Bind(c, &in) {
			return
		}
		p, err := svc.SetProductCategories(c.Request.Context(), auth.Current(c).UserID(), id, in.CategoryIDs)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func createCategoryHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in catalog.CategoryInput
		if !httpx.Bind(c, &in) {
			return
		}
		cat, err := svc.CreateCategory(c.Request.Context(), auth.Current(c).UserID(), in)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, cat)
	}
}

func updateCategoryHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", errCategoryNotFound)
		if !ok {
			return
		}
		var in catalog.CategoryInput
		if !httpx.Bind(c, &in) {
			return
		}
		cat, err := svc.UpdateCategory(c.Request.Context(), auth.Current(c).UserID(), id, in)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

func deleteCategoryHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", errCategoryNotFound)
		if !ok {
			return
		}
		if err := svc.DeleteCategory(c.Request.Context(), auth.Current(c).UserID(), id); err != nil {
			httpx.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
