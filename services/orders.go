package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"wizard-backend/model"
)

// CreateOrderRequest is the contract of the external order-creation
// service: validated contact fields plus the selection. The gateway itself
// performs no validation.
type CreateOrderRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`

	SelectedProductIDs  []string `json:"selectedProductIds"`
	SelectedProductTerm string   `json:"selectedProductTerm,omitempty"`
	ZipCode             string   `json:"zipCode,omitempty"`
}

type createOrderResponse struct {
	OrderID string `json:"orderId"`
}

type orderErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// OrderService talks to the external order/account creation backend.
type OrderService struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOrderService creates an order gateway client.
func NewOrderService(baseURL, apiKey string) *OrderService {
	logger := slog.With("service", "OrderService")

	return &OrderService{
		logger:  logger,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// NewCreateOrderRequest builds the gateway request from the contact form
// and the selected lines.
func NewCreateOrderRequest(form model.OrderForm, lines []model.SelectionLine, productTerm, zipCode string) CreateOrderRequest {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	return CreateOrderRequest{
		FirstName:           form.FirstName,
		LastName:            form.LastName,
		Email:               form.Email,
		Phone:               form.Phone,
		Street:              form.Street,
		City:                form.City,
		Province:            form.Province,
		PostalCode:          form.PostalCode,
		Country:             form.Country,
		SelectedProductIDs:  ids,
		SelectedProductTerm: productTerm,
		ZipCode:             zipCode,
	}
}

// CreateOrder submits the order and returns the opaque order identifier.
// A rejected request surfaces as a GatewayError whose message is shown to
// the user as-is.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequest(http.MethodPost, s.baseURL+"/api/v1/orders", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(httpReq.WithContext(ctx))
	if err != nil {
		s.logger.Error("Order submission failed", "error", err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)

		var errResp orderErrorResponse
		message := string(body)
		if err := json.Unmarshal(body, &errResp); err == nil {
			if errResp.Message != "" {
				message = errResp.Message
			} else if errResp.Error != "" {
				message = errResp.Error
			}
		}

		s.logger.Error("Order rejected by service", "status", resp.StatusCode, "message", message)
		return "", &GatewayError{Message: message}
	}

	var orderResp createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
		return "", err
	}

	s.logger.Info("Order created", "order_id", orderResp.OrderID)
	return orderResp.OrderID, nil
}
