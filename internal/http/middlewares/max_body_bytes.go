package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps request bodies before JSON binding reads them. User
// payloads are tiny; anything near the cap is abuse, and MaxBytesReader
// makes the oversized read fail inside the handler's bind.
func MaxBodyBytes(max int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, max)
		}
		ctx.Next()
	}
}
