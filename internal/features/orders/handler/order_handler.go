package handler

import (
	"errors"
	"net/http"
	"strconv"

	"shop-api/internal/core/logger"
	"shop-api/internal/features/orders/domain"
	"shop-api/internal/features/orders/ports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// IdempotencyHeader carries the client supplied deduplication key.
const IdempotencyHeader = "Idempotency-Key"

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	// service is the order use case port.
	service ports.OrderService
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(s ports.OrderService) *OrderHandler {
	return &OrderHandler{
		service: s,
	}
}

// RegisterRoutes mounts the order routes on router.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/orders", h.PlaceOrder)
	router.Get("/orders", h.ListOrders)
	router.Put("/orders/:id/status", h.UpdateOrderStatus)
	router.Delete("/orders/:id", h.DeleteOrder)
	router.Get("/users/:userId/orders", h.GetOrdersForCustomer)
}

// PlaceOrderRequest represents the request body for placing an order.
type PlaceOrderRequest struct {
	UserID          *int64               `json:"user_id"`
	Items           []domain.LineRequest `json:"items"`
	ShippingAddress string               `json:"shipping_address"`
	PaymentMethod   string               `json:"payment_method"`
	Name            string               `json:"name"`
	Phone           string               `json:"phone"`
}

// UpdateStatusRequest represents the request body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Response is the success envelope.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// PlacedOrder is the data of a successful placement.
type PlacedOrder struct {
	OrderID string             `json:"order_id"`
	Items   []domain.OrderItem `json:"items"`
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	Success bool             `json:"success"`
	Kind    domain.ErrorKind `json:"kind"`
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}

// PlaceOrder handles POST /orders.
// @Summary Place an order
// @Description Validates the cart, merges repeated products and commits the order with its stock decrements.
// @Tags Orders
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Deduplicates client retries"
// @Param order body PlaceOrderRequest true "Order details"
// @Success 201 {object} Response
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) PlaceOrder(c *fiber.Ctx) error {
	var req PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, domain.NewValidationError("body", "invalid request body"))
	}

	receipt, err := h.service.PlaceOrder(c.Context(), domain.PlaceOrderRequest{
		CustomerID:      req.UserID,
		Lines:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ContactName:     req.Name,
		ContactPhone:    req.Phone,
		IdempotencyKey:  c.Get(IdempotencyHeader),
	})
	result := domain.ResultOf(receipt, err)
	if !result.IsOK() {
		return h.render(c, result.Kind, result.Message, result.Err)
	}

	return c.Status(http.StatusCreated).JSON(Response{
		Success: true,
		Message: "Order created successfully",
		Data: PlacedOrder{
			OrderID: result.Value.OrderID,
			Items:   result.Value.Items,
		},
	})
}

// ListOrders handles GET /orders.
// @Summary List orders
// @Description Lists orders newest first with their merged items.
// @Tags Orders
// @Produce json
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size (max 200)"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	filter := domain.OrderFilter{Status: domain.OrderStatus(c.Query("status"))}

	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return h.fail(c, err)
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return h.fail(c, err)
	}

	views, err := h.service.ListOrders(c.Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(Response{Success: true, Data: views})
}

// GetOrdersForCustomer handles GET /users/:userId/orders.
// @Summary List a customer's orders
// @Tags Orders
// @Produce json
// @Param userId path int true "Customer ID"
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/{userId}/orders [get]
func (h *OrderHandler) GetOrdersForCustomer(c *fiber.Ctx) error {
	customerID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return h.fail(c, domain.NewValidationError("user_id", "user id must be an integer"))
	}

	views, err := h.service.GetOrdersForCustomer(c.Context(), customerID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(Response{Success: true, Data: views})
}

// UpdateOrderStatus handles PUT /orders/:id/status.
// @Summary Update order status
// @Description Moves an order to a new status. Cancelling restores stock once.
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param status body UpdateStatusRequest true "New status"
// @Success 200 {object} Response
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /orders/{id}/status [put]
func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, domain.NewValidationError("body", "invalid request body"))
	}

	view, err := h.service.UpdateOrderStatus(c.Context(), c.Params("id"), req.Status)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(Response{
		Success: true,
		Message: "Order status updated to " + view.StatusLabel,
		Data:    view,
	})
}

// DeleteOrder handles DELETE /orders/:id.
// @Summary Delete an order
// @Description Removes the order row. Stock is not restored.
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} Response
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	if err := h.service.DeleteOrder(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(Response{Success: true, Message: "Order deleted successfully"})
}

func (h *OrderHandler) fail(c *fiber.Ctx, err error) error {
	result := domain.Fail[struct{}](err)
	return h.render(c, result.Kind, result.Message, err)
}

func (h *OrderHandler) render(c *fiber.Ctx, kind domain.ErrorKind, message string, err error) error {
	rayID := rayIDFrom(c)
	status := statusFor(kind, err)

	log := logger.ForRequest(rayID)
	if status >= http.StatusInternalServerError {
		log.Error("Order request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		log.Info("Order request rejected", zap.String("path", c.Path()), zap.String("kind", string(kind)), zap.Error(err))
	}

	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Kind:    kind,
		Message: message,
		RayID:   rayID,
	})
}

// statusFor maps an error kind to an HTTP status. A missing product is a
// client mistake in the cart, a missing order is a missing resource.
func statusFor(kind domain.ErrorKind, err error) int {
	switch kind {
	case domain.KindValidation, domain.KindInsufficientStock:
		return http.StatusBadRequest
	case domain.KindNotFound:
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) && notFound.Entity == domain.EntityProduct {
			return http.StatusBadRequest
		}
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func rayIDFrom(c *fiber.Ctx) string {
	rayID, ok := c.Locals("requestid").(string)
	if !ok || rayID == "" {
		return "unknown"
	}
	return rayID
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(key, "%s must be a non-negative integer", key)
	}
	return n, nil
}
