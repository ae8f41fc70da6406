package v1

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dukapay/payments/internal/api/validator"
	"github.com/dukapay/payments/internal/constants"
	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/internal/service"
	"github.com/dukapay/payments/pkg/mpesa"
	"github.com/dukapay/payments/pkg/pesapal"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handler struct {
	logger    *zap.Logger
	payments  service.PaymentService
	callbacks service.CallbackService
	validator validator.IXValidator
}

func NewHandler(logger *zap.Logger, payments service.PaymentService, callbacks service.CallbackService,
	validator validator.IXValidator) *Handler {
	return &Handler{logger: logger, payments: payments, callbacks: callbacks, validator: validator}
}

func (h *Handler) SubmitPayment(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var request SubmitPaymentRequest

	if err := c.BodyParser(&request); err != nil {
		h.logger.Warn("Failed to parse body",
			zap.Error(err),
			zap.String("body", string(c.Body())))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    constants.ErrCodeInvalidRequestBody,
			"message": constants.GetErrorMessage(constants.ErrCodeInvalidRequestBody),
		})
	}

	if validationErrors := h.validator.Validate(&request); len(validationErrors) > 0 {
		violations := make([]string, 0, len(validationErrors))
		for _, validationError := range validationErrors {
			violations = append(violations,
				fmt.Sprintf("%s failed on %s", validationError.FailedField, validationError.Tag))
		}

		h.logger.Warn("Payment request failed validation",
			zap.String("merchantReference", request.MerchantReference),
			zap.Strings("violations", violations))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    constants.ErrCodeInvalidRequestBody,
			"message": strings.Join(violations, "; "),
		})
	}

	amount, err := decimal.NewFromString(request.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    constants.ErrCodeInvalidAmount,
			"message": constants.GetErrorMessage(constants.ErrCodeInvalidAmount),
		})
	}

	cmd := service.SubmitPaymentCommand{
		MerchantReference: request.MerchantReference,
		OrderID:           request.OrderID,
		UserID:            request.UserID,
		Gateway:           request.Gateway,
		Amount:            amount,
		Currency:          request.Currency,
		PhoneNumber:       request.PhoneNumber,
		Email:             request.Email,
		FirstName:         request.FirstName,
		LastName:          request.LastName,
		Description:       request.Description,
	}

	response, err := h.payments.Submit(ctx, cmd)
	if err != nil {
		h.logger.Error("Failed to submit payment",
			zap.Error(err),
			zap.String("merchantReference", request.MerchantReference),
			zap.String("gateway", request.Gateway))

		return err
	}

	h.logger.Info("Payment submitted successfully",
		zap.String("transactionID", response.TransactionID),
		zap.String("merchantReference", request.MerchantReference),
		zap.String("gateway", request.Gateway))

	if response.Replayed {
		return c.Status(fiber.StatusOK).JSON(response)
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *Handler) GetPayment(c *fiber.Ctx) error {
	view, err := h.payments.GetByReference(c.UserContext(), c.Params("reference"))
	if err != nil {
		return err
	}

	return c.JSON(view)
}

func (h *Handler) ListOrderPayments(c *fiber.Ctx) error {
	orderID, err := strconv.ParseInt(c.Params("orderID"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    constants.ErrCodeInvalidRequestBody,
			"message": "order id must be numeric",
		})
	}

	views, err := h.payments.ListByOrder(c.UserContext(), orderID)
	if err != nil {
		return err
	}

	return c.JSON(ListPaymentsResponse{Payments: views, Total: len(views)})
}

// MpesaCallback ingests the push notification for a mobile money charge.
// The gateway retries anything but an accepted response, so processing
// failures are logged and acknowledged rather than surfaced.
func (h *Handler) MpesaCallback(c *fiber.Ctx) error {
	if err := h.callbacks.Process(c.UserContext(), model.GatewayMobileMoney, c.Body()); err != nil {
		h.logger.Warn("Mobile money callback not applied", zap.Error(err))
	}

	return c.JSON(mpesa.AcceptedAck())
}

// CardCallback ingests an IPN for a card charge. Same contract as
// MpesaCallback: always acknowledge, never bounce the notification.
func (h *Handler) CardCallback(c *fiber.Ctx) error {
	payload := c.Body()

	if err := h.callbacks.Process(c.UserContext(), model.GatewayCard, payload); err != nil {
		h.logger.Warn("Card callback not applied", zap.Error(err))
	}

	callback, err := pesapal.ParseIPN(payload)
	if err != nil {
		return c.SendStatus(fiber.StatusOK)
	}

	return c.JSON(pesapal.AckFor(callback))
}
