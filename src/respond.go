package main

import (
	"net/http"

	"stays/src/types"

	"github.com/gin-gonic/gin"
)

func respond(ctx *gin.Context, data any) {
	ctx.JSON(http.StatusOK, types.OK(data))
}

func respondCreated(ctx *gin.Context, data any) {
	ctx.JSON(http.StatusCreated, types.OK(data))
}

// respondError maps the error taxonomy to its HTTP status; anything outside
// the taxonomy comes back as a 500 with a generic message.
func respondError(ctx *gin.Context, err error) {
	status, body := types.Envelope(err)
	ctx.JSON(status, body)
}
