package hal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/watt-tools/watt/internal/domain"
)

// readString reads a sysfs attribute and strips the trailing newline.
func readString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", mapReadErr(path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// readUint reads a numeric sysfs attribute.
func readUint(path string) (uint64, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not a number", domain.ErrIO, path, s)
	}
	return v, nil
}

// writeString writes value to a sysfs attribute. Sysfs rejects writes it
// does not like with EINVAL or EIO; both surface as ErrHardware.
func writeString(path, value string) error {
	err := os.WriteFile(path, []byte(value), 0o644)
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: write %s", domain.ErrPermissionDenied, path)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", domain.ErrUnsupported, path)
	default:
		return fmt.Errorf("%w: write %q to %s: %v", domain.ErrHardware, value, path, err)
	}
}

// writeVerified writes value and reads it back. A mismatch after a
// successful write means the driver silently rejected the value.
func writeVerified(path, value string) error {
	if err := writeString(path, value); err != nil {
		return err
	}
	got, err := readString(path)
	if err != nil {
		return fmt.Errorf("%w: verify %s: %v", domain.ErrHardware, path, err)
	}
	if !strings.EqualFold(got, strings.TrimSpace(value)) {
		return fmt.Errorf("%w: %s holds %q after writing %q", domain.ErrHardware, path, got, value)
	}
	return nil
}

func mapReadErr(path string, err error) error {
	switch {
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: read %s", domain.ErrPermissionDenied, path)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", domain.ErrUnsupported, path)
	default:
		return fmt.Errorf("%w: read %s: %v", domain.ErrIO, path, err)
	}
}
