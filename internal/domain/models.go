package domain

import "time"

// Status labels a payment or withdrawal request. Values other than
// StatusPending are assigned by the administrator and are not interpreted.
type Status string

// StatusPending is set on every request at creation time.
const StatusPending Status = "pending"

// Account is the per-identity profile and balance record. Balance is held in
// the smallest unit of the tracked value and never drops below zero.
type Account struct {
	Identity  string    `json:"identity"`
	Contact   string    `json:"contact"`
	Verified  bool      `json:"verified"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Payment is a bill-payment request debited from the owner's balance.
type Payment struct {
	ID            string    `json:"id"`
	Owner         string    `json:"owner"`
	Category      string    `json:"category"`
	AccountNumber string    `json:"account_number"`
	Amount        int64     `json:"amount"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Withdrawal is a cash-out request. USDCAmount is debited from the balance;
// UGXAmount is the caller supplied local-currency figure and is stored as is.
type Withdrawal struct {
	ID            string    `json:"id"`
	Owner         string    `json:"owner"`
	Method        string    `json:"method"`
	AccountNumber string    `json:"account_number"`
	USDCAmount    int64     `json:"usdc_amount"`
	UGXAmount     int64     `json:"ugx_amount"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
