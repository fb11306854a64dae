package models

import (
	"encoding/json"
	"strings"
)

// LoyaltyData is the customer data injected into a pass.
type LoyaltyData struct {
	Name        string `json:"name"`
	Points      string `json:"points"`
	LoyaltyCode string `json:"loyalty_code"`
}

// DefaultLoyaltyData is what a pass carries when Voucherify has nothing for
// the customer or cannot be reached.
func DefaultLoyaltyData(customerID string) LoyaltyData {
	return LoyaltyData{
		Name:        customerID,
		Points:      "0",
		LoyaltyCode: "",
	}
}

// VoucherifyCustomer is the subset of GET /v1/customers/{id} this service reads.
type VoucherifyCustomer struct {
	ID       string           `json:"id"`
	SourceID string           `json:"source_id"`
	Name     *string          `json:"name"`
	Email    string           `json:"email"`
	Loyalty  *CustomerLoyalty `json:"loyalty"`
}

type CustomerLoyalty struct {
	Points    *json.Number               `json:"points"`
	Campaigns map[string]CampaignLoyalty `json:"campaigns"`
}

type CampaignLoyalty struct {
	Points *json.Number `json:"points"`
}

// CampaignPoints returns the balance held in the named campaign.
func (c VoucherifyCustomer) CampaignPoints(program string) (string, bool) {
	if program == "" || c.Loyalty == nil {
		return "", false
	}
	campaign, ok := c.Loyalty.Campaigns[program]
	if !ok || campaign.Points == nil {
		return "", false
	}
	return campaign.Points.String(), true
}

// VoucherifyMembers is the subset of GET /v1/loyalties/{id}/members.
type VoucherifyMembers struct {
	Object   string             `json:"object"`
	Total    int                `json:"total"`
	Vouchers []VoucherifyMember `json:"vouchers"`
}

type VoucherifyMember struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Campaign string `json:"campaign"`
}

// FirstCode returns the code of the first membership voucher, if any.
func (m VoucherifyMembers) FirstCode() string {
	if len(m.Vouchers) == 0 {
		return ""
	}
	return strings.TrimSpace(m.Vouchers[0].Code)
}

// CreatePassRequest is the body of POST /.
type CreatePassRequest struct {
	Email string `json:"email"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
