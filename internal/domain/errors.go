package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. The HAL and the
// policy engine wrap these with context; the CLI maps them to exit codes.

var (
	// ErrUnsupported means the capability is absent on this hardware, or the
	// requested value is not offered by the driver (e.g. a governor name not
	// listed in scaling_available_governors).
	ErrUnsupported = errors.New("capability not supported on this system")

	// ErrPermissionDenied means the write was rejected by the kernel,
	// usually because the process is not running as root.
	ErrPermissionDenied = errors.New("permission denied (are you root?)")

	// ErrInvalidArgument means the requested value is out of range or
	// malformed before any hardware was touched.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrHardware means the write was accepted but the verification read
	// did not match, or the driver rejected a well-formed value.
	ErrHardware = errors.New("hardware write failure")

	// ErrIO means a file that probed as present could not be read or
	// written at runtime.
	ErrIO = errors.New("i/o error")
)

// ExitCode maps an error to the CLI exit code contract:
// 0 success, 1 permission, 2 unsupported, 3 invalid argument, 4 hardware.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrPermissionDenied):
		return 1
	case errors.Is(err, ErrUnsupported):
		return 2
	case errors.Is(err, ErrHardware), errors.Is(err, ErrIO):
		return 4
	default:
		// Everything else is an argument or usage problem.
		return 3
	}
}
