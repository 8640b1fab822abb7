package models

import (
	"fmt"
	"strconv"
	"strings"
)

// WALSegmentSize is the default PostgreSQL segment size. Segment math below
// assumes it; clusters built with a non-default --wal-segsize are not
// supported.
const WALSegmentSize = 16 * 1024 * 1024

// LSN is a position in the write-ahead log, printed by PostgreSQL in the
// XXX/YYY hex form.
type LSN uint64

// ParseLSN parses the XXX/YYY form returned by pg_switch_wal and friends.
func ParseLSN(s string) (LSN, error) {
	s = strings.TrimSpace(s)
	hi, lo, ok := strings.Cut(s, "/")
	if !ok {
		return 0, fmt.Errorf("invalid lsn %q: expected X/Y hex form", s)
	}
	h, err := strconv.ParseUint(hi, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid lsn %q: %w", s, err)
	}
	l, err := strconv.ParseUint(lo, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid lsn %q: %w", s, err)
	}
	return LSN(h<<32 | l), nil
}

func (l LSN) String() string {
	return fmt.Sprintf("%X/%X", uint64(l)>>32, uint64(l)&0xFFFFFFFF)
}

// SegmentSeq is the absolute sequence number of the segment containing l,
// the same numbering WALSegment.Seq uses.
func (l LSN) SegmentSeq() uint64 {
	return uint64(l) / WALSegmentSize
}
