package receipts

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is a bank account owned by the authenticated user
type Account struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Currency    string    `json:"currency"`
	Closed      bool      `json:"closed"`
	Created     time.Time `json:"created"`
}

// RetailAccountType identifies personal current accounts
const RetailAccountType = "uk_retail"

// Transaction is an entry in an account's transaction feed. Amount is in
// minor units and negative for debits.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Notes       string    `json:"notes"`
	Created     time.Time `json:"created"`
}

// Webhook is a callback registered for account events
type Webhook struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	URL       string `json:"url"`
}

// Receipt is the itemised receipt attached to a transaction. All amounts
// are in minor units of Currency.
type Receipt struct {
	ID            string    `json:"id"`
	ExternalID    string    `json:"external_id" validate:"required"`
	TransactionID string    `json:"transaction_id" validate:"required"`
	Total         int64     `json:"total" validate:"gte=0"`
	Currency      string    `json:"currency" validate:"required,len=3"`
	Payments      []Payment `json:"payments" validate:"dive"`
	Taxes         []Tax     `json:"taxes" validate:"dive"`
	Items         []Item    `json:"items" validate:"dive"`
}

// Item is a receipt line
type Item struct {
	Description string    `json:"description" validate:"required"`
	Quantity    float64   `json:"quantity" validate:"gte=0"`
	Unit        string    `json:"unit"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency" validate:"required,len=3"`
	Tax         int64     `json:"tax"`
	SubItems    []SubItem `json:"sub_items" validate:"dive"`
}

// SubItem breaks an Item down further
type SubItem struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	Unit        string  `json:"unit"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency" validate:"required,len=3"`
	Tax         int64   `json:"tax"`
}

// Payment records how the receipt was paid
type Payment struct {
	Type         string `json:"type" validate:"required,oneof=card cash gift_card"`
	BIN          string `json:"bin"`
	LastFour     string `json:"last_four" validate:"omitempty,len=4,numeric"`
	AuthCode     string `json:"auth_code"`
	AID          string `json:"aid"`
	MID          string `json:"mid"`
	TID          string `json:"tid"`
	GiftCardType string `json:"gift_card_type"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency" validate:"required,len=3"`
}

// Tax is a tax line
type Tax struct {
	Description string `json:"description" validate:"required"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency" validate:"required,len=3"`
	TaxNumber   string `json:"tax_number"`
}

// NewExternalID returns a random receipt identifier of 32 hex digits
func NewExternalID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// MostRecent returns the last transaction of a feed ordered oldest first
func MostRecent(txs []Transaction) (Transaction, bool) {
	if len(txs) == 0 {
		return Transaction{}, false
	}
	return txs[len(txs)-1], true
}

// bananasPrice is what the example receipt's fixed item costs
const bananasPrice = 269

// ExampleReceipt fabricates a grocery receipt matching the amount of tx.
// Any amount above the fixed bananas line is billed as an excess fare.
func ExampleReceipt(tx Transaction) *Receipt {
	amount := tx.Amount
	if amount < 0 {
		amount = -amount
	}

	items := []Item{{
		Description: "Selected bananas",
		Quantity:    2.5,
		Unit:        "kg",
		Amount:      bananasPrice,
		Currency:    "GBP",
		SubItems: []SubItem{
			{Description: "Bananas loose", Quantity: 1.5, Unit: "kg", Amount: 119, Currency: "GBP"},
			{Description: "Organic bananas", Quantity: 1, Unit: "kg", Amount: 150, Currency: "GBP"},
		},
	}}
	if amount > bananasPrice {
		items = append(items, Item{
			Description: "Excess fare",
			Quantity:    1,
			Amount:      amount - bananasPrice,
			Currency:    "GBP",
			Tax:         20,
			SubItems:    []SubItem{},
		})
	}

	return &Receipt{
		ExternalID:    NewExternalID(),
		TransactionID: tx.ID,
		Total:         amount,
		Currency:      "GBP",
		Payments: []Payment{{
			Type:     "card",
			BIN:      "123321",
			LastFour: "1234",
			AuthCode: "A10B2C",
			Amount:   amount,
			Currency: "GBP",
		}},
		Taxes: []Tax{{Description: "VAT", Currency: "GBP", TaxNumber: "12345678"}},
		Items: items,
	}
}
