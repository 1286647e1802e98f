// Package proto implements the packet-level encode/decode for the
// native protocol's handshake and query lifecycle: packet codes,
// revision thresholds, Hello, Query, Cancel, Ping, and the server's
// Hello/Exception/Progress/ProfileInfo/TableColumns packets. It builds
// on wire (primitives); package block imports its revision thresholds,
// and chclient writes Data packets as a packet code followed by a block.
package proto

import (
	"io"

	"github.com/alfa07/chnative/wire"
)

// Client packet codes.
const (
	ClientHello  uint64 = 0
	ClientQuery  uint64 = 1
	ClientData   uint64 = 2
	ClientCancel uint64 = 3
	ClientPing   uint64 = 4
)

// Server packet codes.
const (
	ServerHello                uint64 = 0
	ServerData                 uint64 = 1
	ServerException            uint64 = 2
	ServerProgress             uint64 = 3
	ServerPong                 uint64 = 4
	ServerEndOfStream          uint64 = 5
	ServerProfileInfo          uint64 = 6
	ServerTotals               uint64 = 7
	ServerExtremes             uint64 = 8
	ServerTablesStatusResponse uint64 = 9
	ServerLog                  uint64 = 10
	ServerTableColumns         uint64 = 11
	ServerPartUUIDs            uint64 = 12
	ServerReadTaskRequest      uint64 = 13
	ServerProfileEvents        uint64 = 14
)

// Revision thresholds gating optional fields.
const (
	RevisionClientInfo          = 54032
	RevisionServerTimezone      = 54058
	RevisionQuotaKey            = 54060
	RevisionServerDisplayName   = 54372
	RevisionVersionPatch        = 54401
	RevisionBlockInfo           = 54405
	RevisionCustomSerialization = 54454
	RevisionParameters          = 54459
	RevisionOpenTelemetry       = 54442
	RevisionAddendum            = 54441
	RevisionProgressWriteInfo   = 54420
	RevisionProgressElapsedNs   = 54460

	// ClientRevision is the revision this client negotiates at
	// handshake; it is also the ceiling on every field it will ever
	// emit.
	ClientRevision = 54465

	clientName         = "chnative"
	clientVersionMajor = 1
	clientVersionMinor = 1
)

// QueryKind distinguishes the query packet's purpose.
type QueryKind uint64

const (
	QueryKindNoQuery   QueryKind = 0
	QueryKindInitial   QueryKind = 1
	QueryKindSecondary QueryKind = 2
)

// QueryProcessingStage selects how far the server should carry the
// query before replying; this client always asks for Complete.
type QueryProcessingStage uint64

const (
	StageComplete QueryProcessingStage = 2
)

func writeStr(w io.Writer, s string) error { return wire.WriteString(w, s) }

func readStr(r wire.Reader) (string, error) { return wire.ReadString(r) }
