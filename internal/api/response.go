// Package api defines the JSON response envelope shared by every endpoint.
// Success and failure responses alike use the same {statusCode, data, message}
// shape so clients can parse responses uniformly.
package api

import (
	"github.com/labstack/echo/v4"
)

// Envelope is the uniform JSON response body.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
}

// Respond writes the envelope with the given status code. The HTTP status
// and the envelope's statusCode field always match.
func Respond(c echo.Context, code int, data any, message string) error {
	return c.JSON(code, Envelope{
		StatusCode: code,
		Data:       data,
		Message:    message,
	})
}
