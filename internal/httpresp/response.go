// Package httpresp holds the success-side response envelopes. Errors go
// through httperr; the two packages together define the whole wire shape.
package httpresp

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListResponse wraps collection endpoints so clients always get the row
// count alongside the page, even when the slice is empty.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created is for resources minted by the request (bookings).
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func List[T any](c *gin.Context, items []T) {
	c.JSON(http.StatusOK, ListResponse[T]{Data: items, Count: len(items)})
}
