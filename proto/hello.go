package proto

import (
	"io"

	"github.com/alfa07/chnative/wire"
)

// ClientHelloPacket is what the client sends to open a session.
type ClientHelloPacket struct {
	ClientName     string
	VersionMajor   uint64
	VersionMinor   uint64
	ClientRevision uint64
	Database       string
	User           string
	Password       string
	QuotaKey       string // only sent if ClientRevision >= RevisionAddendum
}

// DefaultClientHello builds the Hello this client always sends,
// parameterized by the database/credentials the caller supplied.
func DefaultClientHello(database, user, password string) ClientHelloPacket {
	return ClientHelloPacket{
		ClientName:     clientName,
		VersionMajor:   clientVersionMajor,
		VersionMinor:   clientVersionMinor,
		ClientRevision: ClientRevision,
		Database:       database,
		User:           user,
		Password:       password,
	}
}

// WriteClientHello encodes the Hello packet onto w.
func WriteClientHello(w io.Writer, p ClientHelloPacket) error {
	if err := wire.WriteVarint(w, ClientHello); err != nil {
		return err
	}
	if err := writeStr(w, p.ClientName); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, p.VersionMajor); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, p.VersionMinor); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, p.ClientRevision); err != nil {
		return err
	}
	if err := writeStr(w, p.Database); err != nil {
		return err
	}
	if err := writeStr(w, p.User); err != nil {
		return err
	}
	if err := writeStr(w, p.Password); err != nil {
		return err
	}
	if p.ClientRevision >= RevisionAddendum {
		if err := writeStr(w, p.QuotaKey); err != nil {
			return err
		}
	}
	return nil
}

// ServerHelloPacket is the server's handshake reply.
type ServerHelloPacket struct {
	ServerName     string
	VersionMajor   uint64
	VersionMinor   uint64
	ServerRevision uint64
	Timezone       string // present iff R >= RevisionServerTimezone
	DisplayName    string // present iff R >= RevisionServerDisplayName
	VersionPatch   uint64 // present iff R >= RevisionVersionPatch
}

// ReadServerHello decodes the server's Hello reply. The packet code
// itself must already have been consumed by the caller's dispatch
// loop; r is positioned at the name field. clientRevision is the
// client's own negotiated ceiling, used to gate fields the same way
// the client gates its own writes once R = min(client, server) is
// known on the next field.
func ReadServerHello(r wire.Reader, clientRevision uint64) (ServerHelloPacket, error) {
	var p ServerHelloPacket
	var err error
	if p.ServerName, err = readStr(r); err != nil {
		return p, err
	}
	if p.VersionMajor, err = wire.ReadVarint(r); err != nil {
		return p, err
	}
	if p.VersionMinor, err = wire.ReadVarint(r); err != nil {
		return p, err
	}
	if p.ServerRevision, err = wire.ReadVarint(r); err != nil {
		return p, err
	}
	eff := EffectiveRevision(clientRevision, p.ServerRevision)
	if eff >= RevisionServerTimezone {
		if p.Timezone, err = readStr(r); err != nil {
			return p, err
		}
	}
	if eff >= RevisionServerDisplayName {
		if p.DisplayName, err = readStr(r); err != nil {
			return p, err
		}
	}
	if eff >= RevisionVersionPatch {
		if p.VersionPatch, err = wire.ReadVarint(r); err != nil {
			return p, err
		}
	}
	return p, nil
}

// EffectiveRevision is min(client, server); it gates every optional
// field encoded or decoded after the handshake.
func EffectiveRevision(client, server uint64) uint64 {
	if client < server {
		return client
	}
	return server
}
