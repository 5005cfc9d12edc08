// Package bootstrap implements the Bootstrap Orchestrator (spec.md §4.9):
// the state machine that drives the other components from an image path to
// a resolved checkpoint and object map, including the rewind policy on
// ephemeral/omap validation failure.
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/apfsboot/apfs-checkpoint/internal/checksum"
	"github.com/apfsboot/apfs-checkpoint/internal/classify"
	"github.com/apfsboot/apfs-checkpoint/internal/container"
	"github.com/apfsboot/apfs-checkpoint/internal/device"
	"github.com/apfsboot/apfs-checkpoint/internal/diag"
	"github.com/apfsboot/apfs-checkpoint/internal/ephemeral"
	"github.com/apfsboot/apfs-checkpoint/internal/omap"
	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

// Orchestrator owns the process-wide resources the source used global
// variables for (spec.md §9): the block-reader handle and the block size,
// scoped to a single Run call instead.
type Orchestrator struct {
	cfg *Config
	log *diag.Logger
}

// New builds an Orchestrator. log receives every severity-tagged line the
// run produces.
func New(cfg *Config, log *diag.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, log: log}
}

// Run executes the full S0-S7 state machine against the container image at
// path. A non-nil Report means success. A graceful "unimplemented"
// termination (exit 0 per spec.md §6) is returned as a nil Report with a
// non-nil error of Kind Unimplemented; Run never returns a nil Report
// together with a nil error.
func (o *Orchestrator) Run(path string) (*Report, error) {
	// S0 Open.
	reader, err := device.Open(path, o.cfg.ProvisionalBlockSize, o.cfg.AutoDetectAPFS)
	if err != nil {
		return nil, wrap(KindIO, "S0 Open", err)
	}
	defer reader.Close()

	block0, err := reader.ReadBlocks(0, 1)
	if err != nil {
		return nil, wrap(KindIO, "S0 Open", fmt.Errorf("reading block 0: %w", err))
	}

	if !checksum.IsValid(block0) {
		o.log.Warnf("block 0 checksum invalid; proceeding (known-stale per spec)")
	}
	if !classify.IsNxSuperblock(block0) {
		o.log.Warnf("block 0 does not classify as a container superblock; proceeding anyway")
	}

	sb0, err := container.DecodeSuperblock(block0)
	if err != nil {
		return nil, wrap(KindStructural, "S0 Open", fmt.Errorf("decoding block 0: %w", err))
	}
	if sb0.Raw.NxMagic != types.NxMagic {
		o.log.Warnf("block 0 magic is 0x%08X, not NXSB; proceeding anyway", sb0.Raw.NxMagic)
	}
	if sb0.Raw.NxBlockSize != 0 {
		reader.SetBlockSize(sb0.Raw.NxBlockSize)
	}

	// S1 LoadDesc.
	xpDesc, err := container.LoadDescriptorArea(reader, sb0)
	if err != nil {
		if errors.Is(err, container.ErrNonContiguousDescriptor) {
			o.log.End("unimplemented: non-contiguous descriptor area")
			return nil, wrap(KindUnimplemented, "S1 LoadDesc", err)
		}
		if sb0.DescriptorBlockCount() == 0 {
			return nil, wrap(KindStructural, "S1 LoadDesc", err)
		}
		return nil, wrap(KindIO, "S1 LoadDesc", err)
	}

	exclude := make(map[types.XidT]bool)
	rewindAttempts := 0

	for {
		// S2 Select.
		cand, err := container.Select(xpDesc, exclude, o.log)
		if err != nil {
			kind := KindStructural
			if len(exclude) > 0 {
				kind = KindUnimplemented
			}
			return nil, wrap(kind, "S2 Select", err)
		}
		o.log.Infof("checkpoint superblock lies at index %d", cand.Index)

		// S3 Assemble.
		xp, err := container.Assemble(xpDesc, cand.Superblock.Raw.NxXpDescIndex, cand.Superblock.Raw.NxXpDescLen)
		if err != nil {
			return nil, wrap(KindStructural, "S3 Assemble", err)
		}

		// S4 LoadEphem.
		objs, err := ephemeral.Load(reader, xp, o.log)
		if err != nil {
			return nil, wrap(KindIO, "S4 LoadEphem", err)
		}
		o.log.Infof("There are %d checkpoint-mappings", len(objs))

		// S5 ValidateEphem.
		if verr := ephemeral.Validate(objs); verr != nil {
			if !errors.Is(verr, ephemeral.ErrInvalidChecksum) {
				return nil, wrap(KindStructural, "S5 ValidateEphem", verr)
			}
			o.log.Errorf("ephemeral object validation FAILED: %v", verr)
			if exceeded, rerr := o.rewind(&rewindAttempts, exclude, cand.Superblock.Raw.NxO.OXid, verr); exceeded {
				return nil, rerr
			}
			continue
		}

		// S6 LoadOmap.
		root, err := omap.Load(reader, cand.Superblock.Raw.NxOmapOid, o.log)
		if err != nil {
			if errors.Is(err, omap.ErrNonPhysicalTree) {
				o.log.End("unimplemented: omap tree is not physically addressable")
				return nil, wrap(KindUnimplemented, "S6 LoadOmap", err)
			}
			if errors.Is(err, omap.ErrInvalidChecksum) {
				o.log.Errorf("omap validation FAILED: %v", err)
				if exceeded, rerr := o.rewind(&rewindAttempts, exclude, cand.Superblock.Raw.NxO.OXid, err); exceeded {
					return nil, rerr
				}
				continue
			}
			return nil, wrap(KindIO, "S6 LoadOmap", err)
		}

		// S7 ReportFS.
		report := buildReport(cand, len(objs), root)
		o.log.End("success")
		return report, nil
	}
}

// rewind grows the exclusion set with the failing xid and reports whether
// the rewind budget (spec.md's configurable max_rewind_attempts) has been
// exhausted. Reference: spec.md §4.9 S5/S6, §7's "exhausted rewind path".
func (o *Orchestrator) rewind(attempts *int, exclude map[types.XidT]bool, failedXid types.XidT, cause error) (bool, error) {
	exclude[failedXid] = true
	*attempts++
	o.log.Infof("Going back to look at the previous checkpoint")

	if o.cfg.MaxRewindAttempts > 0 && *attempts > o.cfg.MaxRewindAttempts {
		return true, wrap(KindUnimplemented, "rewind", fmt.Errorf("exceeded max_rewind_attempts (%d): %w", o.cfg.MaxRewindAttempts, cause))
	}
	return false, nil
}
