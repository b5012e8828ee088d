package coordinator

import "os"

// pathExists reports whether path names an existing file, treating any
// stat error other than "not exist" as a failure worth surfacing rather
// than silently treating the chunk as missing.
func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
