package domain

import "time"

// TransferReceipt is sent by the payer directly to the payee's listener.
type TransferReceipt struct {
	Sender   string `json:"sender"`
	Amount   int64  `json:"amount"`
	Receiver string `json:"receiver"`
}

// Validate checks the receipt shape. It does not check balances.
func (r TransferReceipt) Validate() error {
	if err := ValidateUsername(r.Sender); err != nil {
		return err
	}
	if err := ValidateUsername(r.Receiver); err != nil {
		return err
	}
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// TransactionReport is the payee's request asking the server to move funds.
// It carries the same fields as the receipt it reconciles.
type TransactionReport TransferReceipt

// Transaction is a settled transfer as recorded in the journal.
type Transaction struct {
	// ID is the journal key.
	// Format: mptx-{ulid_lowercase}.
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    int64  `json:"amount"`
	SettledAt int64  `json:"settled_at"` // Unix milliseconds
}

// NewTransaction creates a settled transaction record with a generated ID.
func NewTransaction(sender, receiver string, amount int64) (*Transaction, error) {
	id, err := GenerateTransactionID()
	if err != nil {
		return nil, err
	}
	return &Transaction{
		ID:        id,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		SettledAt: time.Now().UnixMilli(),
	}, nil
}
