package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/auth"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/export"
	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/notify"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/user"
)

const maxImportSize = 10 << 20

func listUsersHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.List(c.Request.Context(), queryInt(c, "limit", 0), queryInt(c, "offset", 0))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

// setUserRoleHandler godoc
// @Summary  Change a user's role; only owners may grant or revoke owner
// @Tags     admin
// @Param    id   path int            true "user id"
// @Param    body body user.RoleInput true "new role"
// @Success  200 {object} user.User
// @Failure  403 {object} httpx.ErrorBody
// @Router   /admin/users/{id}/role [put]
func setUserRoleHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id", user.ErrNotFound)
		if !ok {
			return
		}
		var in user.RoleInput
		if !httpx.Bind(c, &in) {
			return
		}
		u, err := svc.SetRole(c.Request.Context(), auth.Current(c).User, id, in.Role)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

func attachment(c *gin.Context, name string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%s.xlsx", name, time.Now().UTC().Format("20060102")))
	c.Header("Content-Type", export.ContentType)
}

func exportProductsHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := svc.All(c.Request.Context())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		var buf bytes.Buffer
		if err := export.Products(&buf, products); err != nil {
			httpx.Error(c, apperr.Internal("failed to build workbook", err))
			return
		}
		attachment(c, "products")
		c.Data(http.StatusOK, export.ContentType, buf.Bytes())
	}
}

func exportOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := svc.All(c.Request.Context())
		if err != nil {
			httpx.Error(c, err)
			return
		}
		var buf bytes.Buffer
		if err := export.Orders(&buf, orders); err != nil {
			httpx.Error(c, apperr.Internal("failed to build workbook", err))
			return
		}
		attachment(c, "orders")
		c.Data(http.StatusOK, export.ContentType, buf.Bytes())
	}
}

// importProductsHandler creates or updates products from an uploaded sheet in
// the export layout. Rows with an id update that product; the sheet is applied
// all or nothing.
func importProductsHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			httpx.Error(c, apperr.InvalidFields("no file uploaded", map[string]string{"file": "file is required"}))
			return
		}
		if fh.Size > maxImportSize {
			httpx.Error(c, apperr.InvalidFields("file too large", map[string]string{"file": "file must be at most 10MB"}))
			return
		}
		f, err := fh.Open()
		if err != nil {
			httpx.Error(c, apperr.Internal("failed to open upload", err))
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			httpx.Error(c, apperr.Internal("failed to read upload", err))
			return
		}

		rows, err := export.ParseProducts(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			httpx.Error(c, apperr.InvalidFields("invalid workbook", map[string]string{"file": err.Error()}))
			return
		}

		res, err := svc.Import(c.Request.Context(), auth.Current(c).UserID(), rows)
		if err != nil {
			log.Printf("[import] rid=%s rejected: %v", httpx.RID(c), err)
			httpx.Error(c, err)
			return
		}
		log.Printf("[import] rid=%s created=%d updated=%d", httpx.RID(c), res.Created, res.Updated)
		c.JSON(http.StatusOK, res)
	}
}

func feedHandler(hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request)
	}
}
