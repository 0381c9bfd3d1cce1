package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/homepage-content-api/pkg/errors"
)

// LegacyStatusKey marks a request whose errors must be reported as HTTP 500,
// matching the contract of the original admin endpoints.
const LegacyStatusKey = "legacy_error_status"

// ErrorBody is the failure envelope shared by every endpoint.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// JSON sends a success response. Payload keys are merged next to "success".
func JSON(c *gin.Context, status int, payload gin.H) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, payload gin.H) {
	JSON(c, http.StatusOK, payload)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	status := appErr.Status
	if status == 0 || c.GetBool(LegacyStatusKey) {
		status = http.StatusInternalServerError
	}
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, ErrorBody{Success: false, Message: appErr.Message, Code: appErr.Code})
}

// Abort sends an error response and stops the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// Attachment streams a file download.
func Attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// LegacyErrorStatus flags every request so Error flattens statuses to 500.
func LegacyErrorStatus(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if enabled {
			c.Set(LegacyStatusKey, true)
		}
		c.Next()
	}
}
