//go:build windows

package pylocate

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Verify confirms that the library at path actually loads through the dynamic
// linker. LOAD_WITH_ALTERED_SEARCH_PATH makes dependent DLLs resolve relative
// to the library itself rather than the current process.
func Verify(path string) error {
	handle, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	if err != nil {
		return fmt.Errorf("load library %s: %w", path, err)
	}
	_ = windows.FreeLibrary(handle)
	return nil
}
