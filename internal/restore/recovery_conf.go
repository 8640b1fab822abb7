package restore

import (
	"fmt"
	"strings"

	"github.com/zafrullakhan001/drydock/pkg/models"
)

// recoveryStageDir is where staged WAL segments live, relative to the data
// directory. Keeping the stage on the volume means restore_command can read
// it without any extra mount, and it survives container restarts during
// replay.
const recoveryStageDir = ".drydock-restore/wal"

// buildRecoveryConf renders the postgresql.auto.conf snippet that switches
// the server into targeted recovery on next start. At most one
// recovery_target_* parameter is ever emitted; a nil target replays the
// whole archive.
func buildRecoveryConf(dataDir string, target *models.RecoveryTarget) string {
	var b strings.Builder
	b.WriteString("# added by drydock restore pitr\n")
	fmt.Fprintf(&b, "restore_command = 'cp %s/%s/%%f \"%%p\"'\n", dataDir, recoveryStageDir)
	if target != nil {
		fmt.Fprintf(&b, "%s = '%s'\n", target.GUC(), quoteGUC(target.Value))
	}
	b.WriteString("recovery_target_action = 'promote'\n")
	return b.String()
}

// quoteGUC doubles single quotes the way the server expects inside a
// quoted configuration value.
func quoteGUC(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
