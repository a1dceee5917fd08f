package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobassist/internal/shared/util"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Attachment writes a downloadable payload. Unusable file names fall back to "download".
func Attachment(c *gin.Context, fileName, contentType string, data []byte) {
	AttachmentName(c, fileName)
	c.Data(http.StatusOK, contentType, data)
}

// AttachmentName sets Content-Disposition with a sanitized file name,
// falling back to "download".
func AttachmentName(c *gin.Context, fileName string) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		name = "download"
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
}
