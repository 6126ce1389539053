package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/micropay-go/internal/core/domain"
)

// EncodeReceipt builds the peer-to-peer transfer line.
func EncodeReceipt(r domain.TransferReceipt) string {
	return r.Sender + sep + strconv.FormatInt(r.Amount, 10) + sep + r.Receiver
}

// DecodeReceipt parses "<sender>#<amount>#<receiver>".
func DecodeReceipt(line string) (domain.TransferReceipt, error) {
	parts := strings.Split(line, sep)
	if len(parts) != 3 {
		return domain.TransferReceipt{}, fmt.Errorf("%w: receipt expects 3 fields, got %d", ErrProtocol, len(parts))
	}
	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return domain.TransferReceipt{}, fmt.Errorf("%w: invalid receipt amount %q", ErrProtocol, parts[1])
	}
	return domain.TransferReceipt{Sender: parts[0], Amount: amount, Receiver: parts[2]}, nil
}
