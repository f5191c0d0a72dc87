package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/chibank/wallet-core/internal/currency"
	"github.com/chibank/wallet-core/internal/response"
)

// RegisterCurrencyRoutes exposes the enabled currency catalogue.
func RegisterCurrencyRoutes(r fiber.Router, registry *currency.Registry) {
	r.Get("/currencies", func(c *fiber.Ctx) error {
		var t currency.Type
		switch c.Query("type") {
		case "":
		case string(currency.TypeFiat):
			t = currency.TypeFiat
		case string(currency.TypeCrypto):
			t = currency.TypeCrypto
		default:
			return response.BadRequest(c, "type must be fiat or crypto")
		}
		return response.OK(c, http.StatusOK, fiber.Map{
			"currencies": registry.ListEnabled(t),
			"default":    registry.Default().Code,
		})
	})
}
