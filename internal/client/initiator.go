package client

import (
	"bufio"
	"context"
	"net"

	"github.com/yndnr/micropay-go/internal/core/domain"
	"github.com/yndnr/micropay-go/internal/protocol/wire"
)

// Initiator delivers transfer receipts to peers found in a Directory.
type Initiator struct {
	dir    *Directory
	dialer net.Dialer
}

// NewInitiator creates an initiator resolving peers through dir.
func NewInitiator(dir *Directory) *Initiator {
	return &Initiator{dir: dir}
}

// Send dials the receiver, writes the receipt line and closes. It does
// not wait for any answer and never touches a balance.
func (i *Initiator) Send(ctx context.Context, r domain.TransferReceipt) error {
	peer, ok := i.dir.Lookup(r.Receiver)
	if !ok {
		return domain.ErrPeerNotFound.WithDetails(r.Receiver)
	}

	conn, err := i.dialer.DialContext(ctx, "tcp", peer.Addr())
	if err != nil {
		return domain.ErrConnectionLost.WithDetails("dial peer " + peer.Addr()).WithCause(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	bw := bufio.NewWriter(conn)
	if err := wire.WriteLine(bw, wire.EncodeReceipt(r)); err != nil {
		if wire.IsProtocolError(err) {
			return domain.ErrInvalidArgument.WithCause(err)
		}
		return domain.ErrConnectionLost.WithCause(err)
	}
	if err := bw.Flush(); err != nil {
		return domain.ErrConnectionLost.WithDetails("send to " + r.Receiver).WithCause(err)
	}
	return nil
}
