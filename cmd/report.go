package cmd

import (
	"github.com/apfsboot/apfs-checkpoint/internal/bootstrap"
	"github.com/apfsboot/apfs-checkpoint/internal/diag"
)

// printReport renders a successful bootstrap Report as the human-readable
// text spec.md §6 calls for, with the severity-tagged END line last.
func printReport(logger *diag.Logger, report *bootstrap.Report, verbose bool) {
	logger.Infof("checkpoint superblock lies at index %d (xid %d)", report.CheckpointIndex, report.Xid)
	logger.Infof("There are %d checkpoint-mappings", report.EphemeralCount)
	logger.Infof("object map tree root resolved, %d-byte node", len(report.Omap.RootNode))

	if len(report.VolumeOids) == 0 {
		logger.Infof("no volumes listed in this checkpoint's nx_fs_oid")
	} else {
		logger.Infof("%d volume(s): %v", len(report.VolumeOids), report.VolumeOids)
	}

	if verbose {
		logger.Infof("fusion present: %v, keybag present: %v", report.FusionPresent, report.KeybagPresent)
	}

	logger.End("success")
}
