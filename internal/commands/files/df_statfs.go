//go:build linux || darwin

package files

import "golang.org/x/sys/unix"

// diskSpace reports the size and free space of the file system holding
// dir.
func diskSpace(dir string) (total, free uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, 0, err
	}
	bsize := uint64(st.Bsize) //nolint:unconvert
	return uint64(st.Blocks) * bsize, uint64(st.Bavail) * bsize, nil //nolint:unconvert
}
