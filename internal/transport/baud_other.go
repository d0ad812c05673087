//go:build !linux

package transport

import "fmt"

func setBaud(fd, baud int) error {
	return fmt.Errorf("setting baud rate %d is only supported on linux", baud)
}
