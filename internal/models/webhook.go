package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingCustomer = errors.New("webhook: customer email and source_id are both missing")
	ErrMissingBalance  = errors.New("webhook: balance is missing")
)

// WebhookNotification is the part of a Voucherify webhook this service reads.
//
// Two payload shapes carry the new balance: loyalty transaction events put
// it under data.transaction.details.balance.balance, voucher events under
// data.voucher.loyalty_card.balance. Which event types produce which shape
// is not documented upstream, so both are read.
type WebhookNotification struct {
	Type string      `json:"type"`
	Data WebhookData `json:"data"`
}

type WebhookData struct {
	Holder      *WebhookHolder      `json:"holder"`
	Transaction *WebhookTransaction `json:"transaction"`
	Voucher     *WebhookVoucher     `json:"voucher"`
}

type WebhookHolder struct {
	Email    string `json:"email"`
	SourceID string `json:"source_id"`
}

type WebhookTransaction struct {
	Details *struct {
		Balance *struct {
			Balance *json.Number `json:"balance"`
		} `json:"balance"`
	} `json:"details"`
}

type WebhookVoucher struct {
	LoyaltyCard *struct {
		Balance *json.Number `json:"balance"`
	} `json:"loyalty_card"`
}

// ParseWebhookNotification decodes a raw webhook body.
func ParseWebhookNotification(body []byte) (WebhookNotification, error) {
	var n WebhookNotification
	if len(body) == 0 {
		return n, nil
	}
	if err := json.Unmarshal(body, &n); err != nil {
		return n, fmt.Errorf("webhook: decode payload: %w", err)
	}
	return n, nil
}

// CustomerID returns the holder email, falling back to the source id.
func (n WebhookNotification) CustomerID() string {
	if n.Data.Holder == nil {
		return ""
	}
	if n.Data.Holder.Email != "" {
		return n.Data.Holder.Email
	}
	return n.Data.Holder.SourceID
}

// Balance returns the new balance from whichever payload shape carries it.
func (n WebhookNotification) Balance() (string, bool) {
	if t := n.Data.Transaction; t != nil && t.Details != nil && t.Details.Balance != nil && t.Details.Balance.Balance != nil {
		return t.Details.Balance.Balance.String(), true
	}
	if v := n.Data.Voucher; v != nil && v.LoyaltyCard != nil && v.LoyaltyCard.Balance != nil {
		return v.LoyaltyCard.Balance.String(), true
	}
	return "", false
}

// Extract returns the customer id and new balance, or an error naming what
// is missing.
func (n WebhookNotification) Extract() (customerID, points string, err error) {
	customerID = n.CustomerID()
	points, ok := n.Balance()
	if customerID == "" {
		return "", "", ErrMissingCustomer
	}
	if !ok {
		return customerID, "", ErrMissingBalance
	}
	return customerID, points, nil
}
