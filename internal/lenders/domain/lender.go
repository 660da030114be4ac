// Package domain holds the lender entity and its serviceability rules.
package domain

import (
	"strings"
	"time"
)

// Lender is a partner configured in the registry. Code is the lowercase
// key used for dispatch and routing.
type Lender struct {
	ID               int64
	Code             string
	Name             string
	Active           bool
	PincodeWhitelist []string
	PincodeBlacklist []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NormalizeCode lowercases and trims a lender name for registry lookup.
func NormalizeCode(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ServesPinCode reports whether the lender serves the given pincode.
// A non-empty whitelist is authoritative: only listed pincodes pass.
// Otherwise a blacklisted pincode is refused and everything else passes.
// An empty pincode is always allowed; serviceability is checked downstream
// by the lender itself.
func (l Lender) ServesPinCode(pinCode string) bool {
	if pinCode == "" {
		return true
	}
	if len(l.PincodeWhitelist) > 0 {
		return contains(l.PincodeWhitelist, pinCode)
	}
	return !contains(l.PincodeBlacklist, pinCode)
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// MISStatus values reported by lenders in their MIS files.
const (
	MISStatusDisbursed = "disbursed"
	MISStatusApproved  = "approved"
	MISStatusRejected  = "rejected"
	MISStatusPending   = "pending"
)

// MISRecord is one row of a lender's MIS (management information system)
// export. LenderLeadID is the lender's own UUID for the lead; LeadID is
// filled when the mobile number matches a stored lead.
type MISRecord struct {
	ID              int64
	LenderID        int64
	LenderLeadID    string
	Mobile          string
	LeadID          *int64
	Status          string
	DisbursedAmount *float64
	ReportedAt      time.Time
	CreatedAt       time.Time
}

// Stats are aggregate figures per lender, recomputed from MIS data rather
// than maintained incrementally.
type Stats struct {
	LenderID        int64     `json:"lenderId"`
	TotalRecords    int64     `json:"totalRecords"`
	LinkedRecords   int64     `json:"linkedRecords"`
	Disbursals      int64     `json:"disbursals"`
	DisbursedAmount float64   `json:"disbursedAmount"`
	ComputedAt      time.Time `json:"computedAt"`
}
