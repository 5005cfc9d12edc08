package bootstrap

import (
	"github.com/apfsboot/apfs-checkpoint/internal/container"
	"github.com/apfsboot/apfs-checkpoint/internal/omap"
	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

// Report is the outcome of S7 ReportFS: the data a successful bootstrap run
// presents about the container it resolved. Reference: spec.md §4.9 S7,
// invariant P5.
type Report struct {
	CheckpointIndex int
	Xid             types.XidT
	EphemeralCount  int
	VolumeOids      []types.OidT
	Omap            *omap.Root

	// FusionPresent and KeybagPresent are SUPPLEMENTED FEATURES: §1
	// excludes decoding Fusion/encrypted structures but not recognizing
	// their presence.
	FusionPresent bool
	KeybagPresent bool
}

// buildReport enumerates sb's non-zero nx_fs_oid entries up to the first
// zero or NX_MAX_FILE_SYSTEMS, satisfying P5, and folds in the
// Fusion/keybag presence signals.
func buildReport(cand *container.Candidate, ephemeralCount int, root *omap.Root) *Report {
	sb := cand.Superblock
	var volumes []types.OidT
	for i := 0; i < types.NxMaxFileSystems; i++ {
		oid := sb.Raw.NxFsOid[i]
		if oid == types.OidInvalid {
			break
		}
		volumes = append(volumes, oid)
	}

	return &Report{
		CheckpointIndex: cand.Index,
		Xid:             sb.Raw.NxO.OXid,
		EphemeralCount:  ephemeralCount,
		VolumeOids:      volumes,
		Omap:            root,
		FusionPresent:   sb.IsFusion(),
		KeybagPresent:   sb.Raw.NxKeylocker.PrBlockCount > 0,
	}
}
