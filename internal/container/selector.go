package container

import (
	"fmt"

	"github.com/apfsboot/apfs-checkpoint/internal/checksum"
	"github.com/apfsboot/apfs-checkpoint/internal/classify"
	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

// Warner receives non-fatal, per-slot diagnostics while scanning the
// descriptor area, matching spec.md §7's "warn-only" policy for corrupt or
// unrecognized slots.
type Warner interface {
	Warnf(format string, args ...any)
}

// Candidate is a well-formed container superblock found in the descriptor
// area, together with the slot it occupies.
type Candidate struct {
	Index      int
	Superblock *Superblock
}

// Select scans xpDesc left to right and returns the well-formed container
// superblock with the highest xid, excluding any xid in excludeXids (used
// by the Orchestrator's rewind policy, spec.md §4.9 S5/S6). Reference:
// spec.md §4.5, invariant P2.
//
// Tie-break: strict greater-than only, so the earliest index carrying the
// maximum xid wins. The current best starts out empty (nil) rather than at
// slot 0, so a corrupt slot 0 does not by itself disqualify the scan from
// returning a later slot.
func Select(xpDesc [][]byte, excludeXids map[types.XidT]bool, warn Warner) (*Candidate, error) {
	var latest *Candidate

	for i, block := range xpDesc {
		if !checksum.IsValid(block) {
			warn.Warnf("descriptor slot %d: checksum invalid, skipping", i)
			continue
		}

		kind, _, ok := classify.Classify(block)
		if !ok {
			warn.Warnf("descriptor slot %d: too small to classify, skipping", i)
			continue
		}

		switch kind {
		case classify.KindNxSuperblock:
			sb, err := DecodeSuperblock(block)
			if err != nil {
				warn.Warnf("descriptor slot %d: failed to decode superblock: %v, skipping", i, err)
				continue
			}
			if sb.Raw.NxMagic != types.NxMagic {
				warn.Warnf("descriptor slot %d: bad NXSB magic 0x%08X, skipping", i, sb.Raw.NxMagic)
				continue
			}
			if excludeXids[sb.Raw.NxO.OXid] {
				continue
			}
			if latest == nil || sb.Raw.NxO.OXid > latest.Superblock.Raw.NxO.OXid {
				latest = &Candidate{Index: i, Superblock: sb}
			}
		case classify.KindCheckpointMap:
			// Accepted silently; the Assembler re-reads these once a
			// checkpoint has been chosen.
		default:
			warn.Warnf("descriptor slot %d: neither superblock nor checkpoint-map (kind %s)", i, kind)
		}
	}

	if latest == nil {
		return nil, fmt.Errorf("container: no valid container superblock found in descriptor area")
	}
	return latest, nil
}
