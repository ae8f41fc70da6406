package api

import (
	v1 "github.com/dukapay/payments/internal/api/v1"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefixV1 = "api/v1/"

func SetupRoutes(app *fiber.App, handler *Handler, v1Handler *v1.Handler) {
	app.Get("/ping", handler.Pong)
	app.Get("/health", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post(prefixV1+"payments", v1Handler.SubmitPayment)
	app.Get(prefixV1+"payments/:reference", v1Handler.GetPayment)
	app.Get(prefixV1+"orders/:orderID/payments", v1Handler.ListOrderPayments)

	app.Post(prefixV1+"callbacks/mpesa", v1Handler.MpesaCallback)
	app.Post(prefixV1+"callbacks/card", v1Handler.CardCallback)
}
