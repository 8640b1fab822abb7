// Package errdefs defines the error classes drydock workflows report.
// Engines tag failures with one of these sentinels via fmt.Errorf and %w so
// callers can branch on class while the full cause chain stays intact.
package errdefs

import "errors"

var (
	// ErrConnectivity: the database server cannot be reached or will not
	// answer a liveness probe.
	ErrConnectivity = errors.New("database unreachable")

	// ErrValidation: preconditions failed before any side effect; the
	// workflow never started mutating anything.
	ErrValidation = errors.New("validation failed")

	// ErrContainerState: the container is not in the state the operation
	// requires, or refused a stop/start request.
	ErrContainerState = errors.New("container state")

	// ErrDestructive: a failure after the point of no return; target data
	// has already been removed or overwritten.
	ErrDestructive = errors.New("destructive operation failed")

	// ErrTimeout: an operation exceeded its configured bound.
	ErrTimeout = errors.New("timed out")

	// ErrIntegrity: an artifact or WAL archive is inconsistent, such as a
	// gap in the segment sequence.
	ErrIntegrity = errors.New("integrity check failed")
)

func IsConnectivity(err error) bool { return errors.Is(err, ErrConnectivity) }

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsContainerState(err error) bool { return errors.Is(err, ErrContainerState) }

func IsDestructive(err error) bool { return errors.Is(err, ErrDestructive) }

func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

func IsIntegrity(err error) bool { return errors.Is(err, ErrIntegrity) }
