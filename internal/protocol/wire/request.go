package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/micropay-go/internal/core/domain"
)

// Command words.
const (
	CmdRegister    = "REGISTER"
	CmdList        = "List"
	CmdTransaction = "TRANSACTION"
	CmdExit        = "Exit"

	sep = domain.FieldSeparator
)

// Status replies sent by the directory server.
const (
	ReplyOK           = "100 OK"
	ReplyFail         = "210 FAIL"
	ReplyAuthFail     = "220 AUTH_FAIL"
	ReplyAuthRequired = "230 AUTH_REQUIRED"
	ReplyBye          = "Bye"
	ReplyRateLimited  = "ERR rate limited"

	ReplyTransactionOK     = "Transaction successful"
	ReplyTransactionFailed = "Transaction failed: "
)

// Reasons appended to ReplyTransactionFailed.
const (
	ReasonInvalidUsers     = "Invalid users"
	ReasonInsufficient     = "Insufficient balance"
	ReasonInvalidAmount    = "Invalid amount"
	ReasonInvalidFormat    = "Invalid format"
	ReasonNotAuthenticated = "Not authenticated"
)

// Kind classifies a client request line.
type Kind int

const (
	KindUnknown Kind = iota
	KindRegister
	KindList
	KindTransaction
	KindExit
	KindLogin
)

// String returns the metric label for the kind.
func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindList:
		return "list"
	case KindTransaction:
		return "transaction"
	case KindExit:
		return "exit"
	case KindLogin:
		return "login"
	default:
		return "unknown"
	}
}

// Request is one parsed client-to-server line.
type Request struct {
	Kind Kind

	// Username is set for register and login.
	Username string

	// Amount is the register deposit or transaction amount.
	// HasAmount is false for a REGISTER line without a deposit.
	Amount    int64
	HasAmount bool

	// Port is the advertised listener port for login.
	Port int

	// Sender and Receiver are set for transaction reports.
	Sender   string
	Receiver string
}

// ParseRequest classifies and parses a request line (without CRLF).
//
// Classification order is REGISTER#, List, TRANSACTION#, Exit, then any
// line containing '#' is a login. When the kind is recognised but its
// fields are malformed, the returned Request still carries the Kind
// together with an ErrProtocol error so the caller can pick the reply.
func ParseRequest(line string) (Request, error) {
	switch {
	case strings.HasPrefix(line, CmdRegister+sep):
		return parseRegister(line[len(CmdRegister)+1:])
	case line == CmdList:
		return Request{Kind: KindList}, nil
	case strings.HasPrefix(line, CmdTransaction+sep):
		return parseTransaction(line[len(CmdTransaction)+1:])
	case line == CmdExit:
		return Request{Kind: KindExit}, nil
	case strings.Contains(line, sep):
		return parseLogin(line)
	default:
		return Request{}, fmt.Errorf("%w: unrecognised request", ErrProtocol)
	}
}

func parseRegister(rest string) (Request, error) {
	req := Request{Kind: KindRegister}
	parts := strings.Split(rest, sep)
	switch len(parts) {
	case 1:
		req.Username = parts[0]
	case 2:
		req.Username = parts[0]
		amount, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return req, fmt.Errorf("%w: invalid register amount %q", ErrProtocol, parts[1])
		}
		req.Amount = amount
		req.HasAmount = true
	default:
		return req, fmt.Errorf("%w: register expects 1 or 2 fields, got %d", ErrProtocol, len(parts))
	}
	return req, nil
}

func parseTransaction(rest string) (Request, error) {
	req := Request{Kind: KindTransaction}
	parts := strings.Split(rest, sep)
	if len(parts) != 3 {
		return req, fmt.Errorf("%w: transaction expects 3 fields, got %d", ErrProtocol, len(parts))
	}
	amount, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return req, fmt.Errorf("%w: invalid transaction amount %q", ErrProtocol, parts[2])
	}
	req.Sender = parts[0]
	req.Receiver = parts[1]
	req.Amount = amount
	req.HasAmount = true
	return req, nil
}

func parseLogin(line string) (Request, error) {
	req := Request{Kind: KindLogin}
	parts := strings.Split(line, sep)
	if len(parts) != 2 {
		return req, fmt.Errorf("%w: login expects 2 fields, got %d", ErrProtocol, len(parts))
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return req, fmt.Errorf("%w: invalid login port %q", ErrProtocol, parts[1])
	}
	req.Username = parts[0]
	req.Port = port
	return req, nil
}

// EncodeRegister builds a REGISTER line. A negative deposit omits the
// amount field so the server applies its initial balance.
func EncodeRegister(username string, deposit int64) string {
	if deposit < 0 {
		return CmdRegister + sep + username
	}
	return CmdRegister + sep + username + sep + strconv.FormatInt(deposit, 10)
}

// EncodeLogin builds a login line.
func EncodeLogin(username string, port int) string {
	return username + sep + strconv.Itoa(port)
}

// EncodeReport builds a TRANSACTION report line.
func EncodeReport(r domain.TransactionReport) string {
	return CmdTransaction + sep + r.Sender + sep + r.Receiver + sep + strconv.FormatInt(r.Amount, 10)
}

// TransactionFailed builds a failed transaction reply.
func TransactionFailed(reason string) string {
	return ReplyTransactionFailed + reason
}

// ParseTransactionReply returns nil for a successful reply, or a domain
// error matching the failure reason.
func ParseTransactionReply(line string) error {
	if line == ReplyTransactionOK {
		return nil
	}
	reason, ok := strings.CutPrefix(line, ReplyTransactionFailed)
	if !ok {
		return domain.ErrProtocolViolation.WithDetails("unexpected reply: " + line)
	}
	switch reason {
	case ReasonInvalidUsers:
		return domain.ErrUnknownUser
	case ReasonInsufficient:
		return domain.ErrInsufficientFunds
	case ReasonInvalidAmount:
		return domain.ErrInvalidAmount
	case ReasonNotAuthenticated:
		return domain.ErrNotAuthenticated
	case ReasonInvalidFormat:
		return domain.ErrProtocolViolation.WithDetails(reason)
	default:
		return domain.ErrProtocolViolation.WithDetails("unknown failure reason: " + reason)
	}
}
