package proto

import "github.com/alfa07/chnative/wire"

// Progress mirrors the server's Progress packet. The dispatcher
// decodes and discards it; no callback surfaces it to the caller.
type Progress struct {
	ReadRows        uint64
	ReadBytes       uint64
	TotalRowsToRead uint64
	WrittenRows     uint64
	WrittenBytes    uint64
	ElapsedNs       uint64
}

// ReadProgress decodes a Progress packet at effective revision
// revision: total_rows, then written_rows/written_bytes, then
// elapsed_ns, each present only if the negotiated revision meets the
// corresponding threshold.
func ReadProgress(r wire.Reader, revision uint64) (Progress, error) {
	var p Progress
	var err error
	if p.ReadRows, err = wire.ReadVarint(r); err != nil {
		return p, err
	}
	if p.ReadBytes, err = wire.ReadVarint(r); err != nil {
		return p, err
	}
	if revision >= RevisionClientInfo {
		if p.TotalRowsToRead, err = wire.ReadVarint(r); err != nil {
			return p, err
		}
	}
	if revision >= RevisionProgressWriteInfo {
		if p.WrittenRows, err = wire.ReadVarint(r); err != nil {
			return p, err
		}
		if p.WrittenBytes, err = wire.ReadVarint(r); err != nil {
			return p, err
		}
	}
	if revision >= RevisionProgressElapsedNs {
		if p.ElapsedNs, err = wire.ReadVarint(r); err != nil {
			return p, err
		}
	}
	return p, nil
}
