package handler

import (
	"net/http"

	"shop/internal/config"
	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /paymentのHTTP
type PaymentHandler struct {
	uc *usecase.CheckoutUsecase
}

// DI
func NewPaymentHandler(uc *usecase.CheckoutUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type CheckoutRequest struct {
	CardToken string `json:"card_token"`
}

type UpdateCardRequest struct {
	CardToken string `json:"card_token"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payment")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("/checkout", h.checkout)
	g.POST("/card/update", h.updateCard)
}

func (h *PaymentHandler) checkout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	email, ok := getUserEmailFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Checkout(c.Request().Context(), userID, usecase.CheckoutInput{
		CardToken: req.CardToken,
		Email:     email,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) updateCard(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req UpdateCardRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.UpdateCustomerCard(c.Request().Context(), userID, req.CardToken); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
