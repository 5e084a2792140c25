//go:build !darwin && !linux && !freebsd && !windows

package pylocate

// Verify reports that dynamic-load verification is unavailable here.
func Verify(path string) error {
	return ErrVerifyUnsupported
}
