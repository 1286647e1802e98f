package proto

import (
	"io"

	"github.com/alfa07/chnative/wire"
)

// QueryPacket is the client's Query request.
type QueryPacket struct {
	QueryID     string
	Info        ClientInfo
	Settings    []Setting
	Parameters  map[string]string
	Stage       QueryProcessingStage
	Compression uint8 // always 0, compression is not negotiated
	Text        string
}

// WriteQuery encodes the Query packet onto w, gating ClientInfo and
// the parameters section on the effective revision r.
func WriteQuery(w io.Writer, p QueryPacket, r uint64) error {
	if err := wire.WriteVarint(w, ClientQuery); err != nil {
		return err
	}
	if err := writeStr(w, p.QueryID); err != nil {
		return err
	}
	if err := WriteClientInfo(w, p.Info, r); err != nil {
		return err
	}
	if err := WriteSettings(w, p.Settings); err != nil {
		return err
	}
	if r >= RevisionParameters {
		if err := WriteParameters(w, p.Parameters); err != nil {
			return err
		}
	}
	if err := wire.WriteVarint(w, uint64(p.Stage)); err != nil {
		return err
	}
	if err := wire.WriteU8(w, p.Compression); err != nil {
		return err
	}
	return writeStr(w, p.Text)
}
