package bridge

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetHostDir returns the directory of the host executable that loaded the
// engine. It will not account for symlinks.
func GetHostDir() (string, error) {
	executablePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("error getting executable directory: %s", err.Error())
	}
	dir := filepath.Dir(executablePath)
	return dir, nil
}
