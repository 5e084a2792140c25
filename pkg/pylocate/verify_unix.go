//go:build darwin || linux || freebsd

package pylocate

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Verify confirms that the library at path actually loads through the dynamic
// linker. A path that exists but was built for the wrong architecture or has
// unresolved dependencies fails here rather than at extension import time.
func Verify(path string) error {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("dlopen %s: %w", path, err)
	}
	_ = purego.Dlclose(handle)
	return nil
}
