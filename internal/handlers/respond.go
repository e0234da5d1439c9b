package handlers

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strconv"

	"go-sales-crm/internal/apperr"
	"go-sales-crm/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const genericError = "An unexpected error occurred. Please try again later."

// respondError maps an apperr class to a status. Internal causes are logged, never returned.
func respondError(c *gin.Context, err error) {
	if apperr.IsInternal(err) {
		log.Printf("❌ [%s] %s %s: %v", middleware.GetRequestID(c), c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericError})
		return
	}
	var ae *apperr.Error
	errors.As(err, &ae)

	status := http.StatusBadRequest
	if ae.Code == apperr.CodeNotFound {
		status = http.StatusNotFound
	}
	body := gin.H{"error": ae.Message}
	if len(ae.Details) > 0 {
		body["details"] = ae.Details
	}
	c.JSON(status, body)
}

// bindJSON binds and validates the body, answering 400 itself on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": validationDetails(err)})
		return false
	}
	return true
}

func validationDetails(err error) gin.H {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return gin.H{"body": err.Error()}
	}
	out := gin.H{}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// pathID parses a positive numeric path parameter, answering 400 itself on failure.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// queryID reads an optional positive numeric query parameter.
func queryID(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return nil, false
	}
	v := uint(id)
	return &v, true
}

func queryInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

var upperCodePattern = regexp.MustCompile(`^[A-Z][A-Z_]{1,29}$`)

// RegisterValidators adds the custom binding rules used by request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not validator/v10")
	}
	return v.RegisterValidation("upper_code", func(fl validator.FieldLevel) bool {
		return upperCodePattern.MatchString(fl.Field().String())
	})
}
