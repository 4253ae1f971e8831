package apperror

import "github.com/gin-gonic/gin"

// Respond writes err as a JSON error body with the status HTTPStatus picks.
func Respond(c *gin.Context, err error) {
	c.JSON(HTTPStatus(err), gin.H{
		"error": err.Error(),
		"kind":  KindOf(err),
	})
}
