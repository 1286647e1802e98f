package proto

import (
	"io"

	"github.com/alfa07/chnative/wire"
)

// Tracing carries the OpenTelemetry fields sent alongside ClientInfo
// once the effective revision reaches RevisionOpenTelemetry.
type Tracing struct {
	TraceID    [16]byte
	SpanID     uint64
	TraceState string
	TraceFlags uint8
}

// ClientInfo is the structured block embedded in a Query packet,
// gated field-by-field on the effective revision.
type ClientInfo struct {
	QueryKind          QueryKind
	InitialUser        string
	InitialQueryID     string
	InitialAddress     string
	InterfaceID        uint64 // 1 = TCP
	OSUser             string
	ClientHostname     string
	ClientName         string
	ClientVersionMajor uint64
	ClientVersionMinor uint64
	ClientRevision     uint64
	QuotaKey           string
	DistributedDepth   uint64
	Tracing            *Tracing
}

const (
	interfaceTCP = 1
)

// DefaultClientInfo builds the ClientInfo this client sends for an
// initial (non-distributed) query.
func DefaultClientInfo() ClientInfo {
	return ClientInfo{
		QueryKind:          QueryKindInitial,
		InterfaceID:        interfaceTCP,
		ClientName:         clientName,
		ClientVersionMajor: clientVersionMajor,
		ClientVersionMinor: clientVersionMinor,
		ClientRevision:     ClientRevision,
	}
}

// WriteClientInfo writes ci gated on the effective revision r.
func WriteClientInfo(w io.Writer, ci ClientInfo, r uint64) error {
	if r < RevisionClientInfo {
		return nil
	}
	if err := wire.WriteU8(w, uint8(ci.QueryKind)); err != nil {
		return err
	}
	if ci.QueryKind == QueryKindNoQuery {
		return nil
	}
	for _, s := range []string{ci.InitialUser, ci.InitialQueryID, ci.InitialAddress} {
		if err := writeStr(w, s); err != nil {
			return err
		}
	}
	if err := wire.WriteU8(w, uint8(ci.InterfaceID)); err != nil {
		return err
	}
	for _, s := range []string{ci.OSUser, ci.ClientHostname, ci.ClientName} {
		if err := writeStr(w, s); err != nil {
			return err
		}
	}
	if err := wire.WriteVarint(w, ci.ClientVersionMajor); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, ci.ClientVersionMinor); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, ci.ClientRevision); err != nil {
		return err
	}
	if r >= RevisionQuotaKey {
		if err := writeStr(w, ci.QuotaKey); err != nil {
			return err
		}
	}
	// distributed_depth has always accompanied client info on every
	// revision this client negotiates, so it carries no separate gate.
	if err := wire.WriteVarint(w, ci.DistributedDepth); err != nil {
		return err
	}
	if r >= RevisionOpenTelemetry {
		if ci.Tracing == nil {
			if err := wire.WriteU8(w, 0); err != nil {
				return err
			}
		} else {
			if err := wire.WriteU8(w, 1); err != nil {
				return err
			}
			if err := wire.WriteWidth(w, ci.Tracing.TraceID[:]); err != nil {
				return err
			}
			if err := wire.WriteU64(w, ci.Tracing.SpanID); err != nil {
				return err
			}
			if err := writeStr(w, ci.Tracing.TraceState); err != nil {
				return err
			}
			if err := wire.WriteU8(w, ci.Tracing.TraceFlags); err != nil {
				return err
			}
		}
	}
	return nil
}
