package functions

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

// PaymentOrder is what the hosted gateway overlay needs to open.
type PaymentOrder struct {
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	KeyID          string          `json:"key_id,omitempty"`
}

// PaymentResult is the payload of the gateway's success callback.
type PaymentResult struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"gateway_signature"`
}

type ShipmentItem struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type ShipmentRequest struct {
	OrderID string                 `json:"order_id"`
	Address domain.AddressSnapshot `json:"address"`
	Items   []ShipmentItem         `json:"items"`
}

// CreatePaymentOrder asks for a gateway order scoped to an existing order.
// Calling it again for the same order is how payment is retried.
func (c *Client) CreatePaymentOrder(ctx context.Context, orderID string) (PaymentOrder, error) {
	var out PaymentOrder
	if err := c.post(ctx, "create-payment-order", map[string]string{"order_id": orderID}, &out); err != nil {
		return PaymentOrder{}, err
	}
	if out.GatewayOrderID == "" {
		return PaymentOrder{}, errors.New("create-payment-order: empty gateway order id")
	}
	return out, nil
}

// VerifyPayment must succeed before an order is treated as paid.
func (c *Client) VerifyPayment(ctx context.Context, orderID string, res PaymentResult) error {
	in := struct {
		OrderID string `json:"order_id"`
		PaymentResult
	}{OrderID: orderID, PaymentResult: res}
	var ack struct {
		Verified *bool `json:"verified"`
	}
	if err := c.post(ctx, "verify-payment", in, &ack); err != nil {
		return err
	}
	if ack.Verified != nil && !*ack.Verified {
		return fmt.Errorf("verify-payment: order %s not verified", orderID)
	}
	return nil
}

func (c *Client) CheckServiceability(ctx context.Context, pincode string) (bool, error) {
	var out struct {
		IsServiceable bool `json:"is_serviceable"`
	}
	if err := c.get(ctx, "check-serviceability", url.Values{"pincode": {pincode}}, &out); err != nil {
		return false, err
	}
	return out.IsServiceable, nil
}

func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (string, error) {
	var out struct {
		WaybillNumber string `json:"waybill_number"`
	}
	if err := c.post(ctx, "create-shipment", req, &out); err != nil {
		return "", err
	}
	return out.WaybillNumber, nil
}

func (c *Client) RequestReturn(ctx context.Context, orderID string, kind domain.ReturnType, reason string) error {
	in := map[string]string{"order_id": orderID, "request_type": string(kind), "reason": reason}
	return c.post(ctx, "request-return", in, nil)
}
