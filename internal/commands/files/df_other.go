//go:build !linux && !darwin

package files

import "errors"

func diskSpace(string) (total, free uint64, err error) {
	return 0, 0, errors.New("disk space not available on this platform")
}
