package httpx

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/MikeMC777/storefront/internal/apperr"
)

// ErrorBody is the JSON shape of every error response.
// swagger:model ErrorBody
type ErrorBody struct {
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

var statusByCode = map[string]int{
	apperr.ENOTFOUND:     http.StatusNotFound,
	apperr.EINVALID:      http.StatusUnprocessableEntity,
	apperr.EUNAUTHORIZED: http.StatusUnauthorized,
	apperr.EFORBIDDEN:    http.StatusForbidden,
	apperr.EPRECONDITION: http.StatusConflict,
	apperr.ECONFLICT:     http.StatusConflict,
	apperr.EINTERNAL:     http.StatusInternalServerError,
}

// Status maps an error to its HTTP status.
func Status(err error) int {
	if s, ok := statusByCode[apperr.Code(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error writes err as JSON and aborts. Messages of errors that are not an
// *apperr.Error never reach the client.
func Error(c *gin.Context, err error) {
	status := Status(err)
	body := ErrorBody{Error: "internal error"}
	if e, ok := apperr.As(err); ok {
		body.Error = e.Message
		body.Fields = e.Fields
		body.Redirect = e.Redirect
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[http] rid=%s %s %s error: %v", RID(c), c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, body)
}

// BindErrors turns a gin binding error into a validation error carrying one
// message per field.
func BindErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Invalid("invalid request body")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		fields[name] = fieldMessage(name, fe)
	}
	return apperr.InvalidFields("please correct the highlighted fields", fields)
}

func init() {
	// Report json keys instead of Go field names in validation errors.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	}
}

func fieldMessage(name string, fe validator.FieldError) string {
	label := strings.ReplaceAll(name, "_", " ")
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return label + " must be a valid email address"
	default:
		return label + " is invalid"
	}
}

// Bind decodes the JSON body into dst, writing the validation error itself
// when it fails.
func Bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		Error(c, BindErrors(err))
		return false
	}
	return true
}
