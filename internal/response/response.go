// Package response renders the API envelope and maps domain errors to stable
// machine-readable kinds. Domain packages register their sentinels at init;
// storage errors are never leaked verbatim.
package response

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// OK writes a success envelope.
func OK(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"status": "success", "data": data})
}

// BadRequest writes a validation failure without consulting the error table.
func BadRequest(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"status": "error",
		"error":  ErrorBody{Kind: "invalid_request", Message: message},
	})
}

type mapping struct {
	err    error
	kind   string
	status int
}

var table []mapping

// Register binds a sentinel error to its envelope kind and HTTP status.
// Called from package init, before any request is served.
func Register(err error, kind string, status int) {
	table = append(table, mapping{err: err, kind: kind, status: status})
}

// Error maps a domain error to its envelope. Unrecognized errors are treated
// as storage-layer faults and surface as a generic 500.
func Error(c *fiber.Ctx, err error) error {
	for _, m := range table {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(fiber.Map{
				"status": "error",
				"error":  ErrorBody{Kind: m.kind, Message: m.err.Error()},
			})
		}
	}
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"status": "error",
		"error":  ErrorBody{Kind: "internal", Message: "internal server error"},
	})
}
