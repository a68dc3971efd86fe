package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type PaymentInitiateRequest struct {
	OrderID int64 `json:"order_id"`
}

type PaymentResumeRequest struct {
	SessionToken string `json:"session_token"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payments")
	g.Use(middleware.AuthJWT(cfg))
	g.POST("/initiate", h.initiate)
	g.POST("/resume", h.resume)

	// ゲートウェイからのコールバック。認証なし（署名で検証する）。
	e.GET("/payments/vnpay/callback", h.vnpayCallback)
}

func (h *PaymentHandler) initiate(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req PaymentInitiateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.InitiatePayment(c.Request().Context(), userID, usecase.InitiatePaymentInput{
		OrderID:  req.OrderID,
		ClientIP: c.RealIP(),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) resume(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req PaymentResumeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.ResumePayment(c.Request().Context(), userID, req.SessionToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ゲートウェイはHTTPステータスで受領を判断する。
// 4xxを返すのは署名不正だけ。金額不一致・不明な参照・決済の成否・再配送は
// 200で受領を返して再送ストームを防ぐ。
func (h *PaymentHandler) vnpayCallback(c echo.Context) error {
	out, err := h.uc.HandleCallback(c.Request().Context(), c.QueryParams())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
