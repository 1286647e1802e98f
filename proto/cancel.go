package proto

import (
	"io"

	"github.com/alfa07/chnative/wire"
)

// WriteCancel writes a Cancel packet; legal at any point after Query
// has been sent.
func WriteCancel(w io.Writer) error {
	return wire.WriteVarint(w, ClientCancel)
}

// WritePing writes a Ping packet.
func WritePing(w io.Writer) error {
	return wire.WriteVarint(w, ClientPing)
}
