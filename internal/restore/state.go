package restore

import (
	"fmt"
	"time"

	"github.com/zafrullakhan001/drydock/pkg/models"
)

// State is one stop in a restore workflow. Workflows walk their states in
// order and finish in exactly one of StateDone or StateFailed.
type State string

const (
	StateValidating          State = "validating"
	StateSnapshotting        State = "snapshotting"
	StateImporting           State = "importing"
	StateStopped             State = "stopped"
	StateClearing            State = "clearing"
	StateCopying             State = "copying"
	StateRestoringBase       State = "restoring_base"
	StateConfiguringRecovery State = "configuring_recovery"
	StateStarting            State = "starting"
	StateAwaitingReady       State = "awaiting_ready"
	StateVerifying           State = "verifying"
	StateDone                State = "done"
	StateFailed              State = "failed"
)

// Result is the full account of one restore workflow: the states it walked
// through, the safety snapshot taken before anything destructive, and what
// the restored server reported afterwards. Failures at or after the
// container stop always carry the snapshot, the operator's way back.
type Result struct {
	Workflow        string                 `json:"workflow"`
	Kind            models.BackupKind      `json:"kind,omitempty"`
	Target          *models.RecoveryTarget `json:"target,omitempty"`
	Record          *models.BackupRecord   `json:"record,omitempty"`
	FinalState      State                  `json:"final_state"`
	Trace           []State                `json:"trace"`
	Snapshot        *models.SafetySnapshot `json:"snapshot,omitempty"`
	Warnings        []string               `json:"warnings,omitempty"`
	PostgresVersion string                 `json:"postgres_version,omitempty"`
	ObservedTime    string                 `json:"observed_time,omitempty"`
	Elapsed         time.Duration          `json:"elapsed"`
}

// session threads one workflow's Result through its states.
type session struct {
	engine *Engine
	result *Result
	start  time.Time
}

func (e *Engine) begin(workflow string) *session {
	return &session{
		engine: e,
		result: &Result{Workflow: workflow},
		start:  time.Now(),
	}
}

func (s *session) enter(st State) {
	s.result.Trace = append(s.result.Trace, st)
	s.result.FinalState = st
	if s.engine.onState != nil {
		s.engine.onState(st)
	}
	s.engine.log.Info().
		Str("workflow", s.result.Workflow).
		Str("state", string(st)).
		Msg("entered state")
}

func (s *session) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.result.Warnings = append(s.result.Warnings, msg)
	s.engine.log.Warn().Str("workflow", s.result.Workflow).Msg(msg)
}

func (s *session) fail(err error) (*Result, error) {
	s.enter(StateFailed)
	s.result.Elapsed = time.Since(s.start)
	evt := s.engine.log.Error().Err(err).Str("workflow", s.result.Workflow)
	if s.result.Snapshot != nil {
		evt = evt.Str("snapshot", s.result.Snapshot.ArchivePath)
	}
	evt.Msg("restore failed")
	return s.result, err
}

func (s *session) finish() *Result {
	s.enter(StateDone)
	s.result.Elapsed = time.Since(s.start)
	s.engine.log.Info().
		Str("workflow", s.result.Workflow).
		Dur("elapsed", s.result.Elapsed).
		Msg("restore complete")
	return s.result
}
