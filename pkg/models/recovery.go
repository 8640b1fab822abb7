package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type RecoveryTargetKind string

const (
	RecoveryTargetTime RecoveryTargetKind = "time"
	RecoveryTargetXID  RecoveryTargetKind = "xid"
	RecoveryTargetName RecoveryTargetKind = "name"
	RecoveryTargetLSN  RecoveryTargetKind = "lsn"
)

// recoveryTimeLayouts are the timestamp forms accepted for time targets,
// tried in order. PostgreSQL itself prints the space-separated form.
var recoveryTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// RecoveryTarget is the point replay stops at during point-in-time recovery.
// Exactly one kind per session; a nil target means replay to the latest
// consistent point in the archive.
type RecoveryTarget struct {
	Kind  RecoveryTargetKind `json:"kind"`
	Value string             `json:"value"`
}

// NewRecoveryTarget builds a target and rejects values the server would
// refuse at startup, so a bad target fails before anything is touched.
func NewRecoveryTarget(kind RecoveryTargetKind, value string) (*RecoveryTarget, error) {
	t := &RecoveryTarget{Kind: kind, Value: strings.TrimSpace(value)}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *RecoveryTarget) Validate() error {
	if t.Value == "" {
		return fmt.Errorf("recovery target value cannot be empty")
	}
	switch t.Kind {
	case RecoveryTargetTime:
		if _, err := t.Time(); err != nil {
			return err
		}
	case RecoveryTargetXID:
		if _, err := strconv.ParseUint(t.Value, 10, 64); err != nil {
			return fmt.Errorf("invalid transaction id %q: %w", t.Value, err)
		}
	case RecoveryTargetName:
		// restore point names are free-form
	case RecoveryTargetLSN:
		if _, err := ParseLSN(t.Value); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown recovery target kind %q", t.Kind)
	}
	return nil
}

// Time parses a time-kind target.
func (t *RecoveryTarget) Time() (time.Time, error) {
	if t.Kind != RecoveryTargetTime {
		return time.Time{}, fmt.Errorf("target kind is %s, not time", t.Kind)
	}
	for _, layout := range recoveryTimeLayouts {
		if ts, err := time.Parse(layout, t.Value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid target time %q: use RFC3339 or '2006-01-02 15:04:05'", t.Value)
}

// LSN parses an lsn-kind target.
func (t *RecoveryTarget) LSN() (LSN, error) {
	if t.Kind != RecoveryTargetLSN {
		return 0, fmt.Errorf("target kind is %s, not lsn", t.Kind)
	}
	return ParseLSN(t.Value)
}

// GUC is the recovery parameter name this target sets in the server
// configuration.
func (t *RecoveryTarget) GUC() string {
	switch t.Kind {
	case RecoveryTargetTime:
		return "recovery_target_time"
	case RecoveryTargetXID:
		return "recovery_target_xid"
	case RecoveryTargetName:
		return "recovery_target_name"
	case RecoveryTargetLSN:
		return "recovery_target_lsn"
	}
	return ""
}

func (t *RecoveryTarget) String() string {
	return fmt.Sprintf("%s=%s", t.Kind, t.Value)
}
