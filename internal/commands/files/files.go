// Package files provides shell-style file commands (ls, cat, cp, ...)
// confined to one directory tree.
package files

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"tinytelnet/internal/command"
	"tinytelnet/internal/errors"
)

const rule = "--------------------------------------------------"

// DefaultHeadLines is how many lines head prints without -n.
const DefaultHeadLines = 10

// FS serves file commands for the tree under Root. Paths given by
// clients are relative to Root; a leading "/" names Root itself.
type FS struct {
	Root string
}

// New returns the file commands for root.
func New(root string) *FS {
	return &FS{Root: root}
}

// Register adds every file command to r.
func (fs *FS) Register(r command.Registrar) {
	r.Handle("ls", command.HandlerFunc(fs.ls), "DIRECTORY")
	r.Handle("dir", command.HandlerFunc(fs.ls), "DIRECTORY")
	r.Handle("cat", command.HandlerFunc(fs.cat), "FILENAME")
	r.Handle("mv", command.HandlerFunc(fs.mv), "SOURCE DESTINATION")
	r.Handle("cp", command.HandlerFunc(fs.cp), "SOURCE DESTINATION")
	r.Handle("rm", command.HandlerFunc(fs.rm), "[-r] FILENAME")
	r.Handle("mkdir", command.HandlerFunc(fs.mkdir), "DIRECTORY_NAME")
	r.Handle("df", command.HandlerFunc(fs.df))
	r.Handle("touch", command.HandlerFunc(fs.touch), "FILENAME")
	r.Handle("write", command.HandlerFunc(fs.write), "FILENAME TEXT")
	r.Handle("head", command.HandlerFunc(fs.head), "[-n lines] FILENAME")
}

// resolve maps a client path onto the local file system.
func (fs *FS) resolve(name string) (string, error) {
	rel := filepath.FromSlash(strings.TrimLeft(filepath.ToSlash(name), "/"))
	if rel == "" {
		return filepath.Clean(fs.Root), nil
	}
	if !filepath.IsLocal(rel) {
		return "", errors.ErrOutsideRoot
	}
	return filepath.Join(fs.Root, rel), nil
}

// stat resolves name and reports a missing file to out.
func (fs *FS) stat(out io.Writer, name string) (string, os.FileInfo, bool) {
	p, err := fs.resolve(name)
	if err != nil {
		fmt.Fprintf(out, "Error: %v: %s\n", err, name)
		return "", nil, false
	}
	fi, err := os.Stat(p)
	if err != nil {
		fmt.Fprintf(out, "Error: File not found: %s\n", name)
		return "", nil, false
	}
	return p, fi, true
}

func (fs *FS) ls(req *command.Request, out io.Writer) bool {
	name := req.Param(0)
	if name == "" {
		name = "/"
	}
	p, err := fs.resolve(name)
	if err != nil {
		fmt.Fprintf(out, "Error: %v: %s\n", err, name)
		return false
	}
	fi, err := os.Stat(p)
	if err != nil {
		fmt.Fprintf(out, "Error: Could not open directory %s\n", name)
		return false
	}
	if !fi.IsDir() {
		fmt.Fprintf(out, "%s is not a directory\n", name)
		return false
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		fmt.Fprintf(out, "Error: Could not open directory %s\n", name)
		return false
	}

	fmt.Fprintf(out, "Directory listing of: %s\n", name)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Name                             Size      Type")
	fmt.Fprintln(out, rule)
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintf(out, "%-32s<DIR>\n", e.Name())
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "%-32s%8s\n", e.Name(), humanize.IBytes(uint64(info.Size())))
	}
	fmt.Fprintln(out, rule)
	return true
}

func (fs *FS) cat(req *command.Request, out io.Writer) bool {
	name := req.Param(0)
	if name == "" {
		fmt.Fprintln(out, "Usage: cat <filename>")
		return false
	}
	p, fi, ok := fs.stat(out, name)
	if !ok {
		return false
	}
	if fi.IsDir() {
		fmt.Fprintf(out, "%s is a directory\n", name)
		return false
	}
	f, err := os.Open(p)
	if err != nil {
		fmt.Fprintf(out, "Error: Could not open file %s\n", name)
		return false
	}
	defer f.Close()

	fmt.Fprintf(out, "File: %s\n", name)
	fmt.Fprintln(out, rule)
	io.Copy(out, f) //nolint:errcheck
	fmt.Fprintln(out, "\n"+rule)
	return true
}

func (fs *FS) mv(req *command.Request, out io.Writer) bool {
	src, dst := req.Param(0), req.Param(1)
	if src == "" || dst == "" {
		fmt.Fprintln(out, "Usage: mv <source> <destination>")
		return false
	}
	sp, fi, ok := fs.stat(out, src)
	if !ok {
		return false
	}
	if fi.IsDir() {
		fmt.Fprintln(out, "Error: Moving directories is not supported")
		return false
	}
	dp, err := fs.resolve(dst)
	if err != nil {
		fmt.Fprintf(out, "Error: %v: %s\n", err, dst)
		return false
	}
	if _, err := os.Stat(dp); err == nil {
		fmt.Fprintf(out, "Error: Destination already exists: %s\n", dst)
		return false
	}
	if err := os.Rename(sp, dp); err != nil {
		fmt.Fprintf(out, "Error: Could not move '%s' to '%s'\n", src, dst)
		return false
	}
	fmt.Fprintf(out, "Moved '%s' to '%s'\n", src, dst)
	return true
}

func (fs *FS) cp(req *command.Request, out io.Writer) bool {
	src, dst := req.Param(0), req.Param(1)
	if src == "" || dst == "" {
		fmt.Fprintln(out, "Usage: cp <source> <destination>")
		return false
	}
	sp, fi, ok := fs.stat(out, src)
	if !ok {
		return false
	}
	if fi.IsDir() {
		fmt.Fprintln(out, "Error: Cannot copy directories")
		return false
	}
	dp, err := fs.resolve(dst)
	if err != nil {
		fmt.Fprintf(out, "Error: %v: %s\n", err, dst)
		return false
	}
	if err := copyFile(sp, dp, fi.Mode().Perm()); err != nil {
		fmt.Fprintf(out, "Error: Could not create destination file: %s\n", dst)
		return false
	}
	fmt.Fprintf(out, "Copied '%s' to '%s'\n", src, dst)
	return true
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	o, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(o, in); err != nil {
		o.Close()
		return err
	}
	return o.Close()
}

func (fs *FS) rm(req *command.Request, out io.Writer) bool {
	params := req.Params
	recursive := len(params) > 0 && params[0] == "-r"
	if recursive {
		params = params[1:]
	}
	if len(params) == 0 || params[0] == "" {
		fmt.Fprintln(out, "Usage: rm [-r] <filename>")
		return false
	}
	name := params[0]
	p, fi, ok := fs.stat(out, name)
	if !ok {
		return false
	}
	if p == filepath.Clean(fs.Root) {
		fmt.Fprintln(out, "Error: Cannot remove the root directory")
		return false
	}

	switch {
	case fi.IsDir() && !recursive:
		fmt.Fprintln(out, "Error: Cannot remove directory without -r flag")
		return false
	case fi.IsDir():
		if err := os.RemoveAll(p); err != nil {
			fmt.Fprintf(out, "Error: Failed to remove directory: %s\n", name)
			return false
		}
	default:
		if err := os.Remove(p); err != nil {
			fmt.Fprintf(out, "Error: Failed to remove file: %s\n", name)
			return false
		}
	}
	fmt.Fprintf(out, "Removed %s\n", name)
	return true
}

func (fs *FS) mkdir(req *command.Request, out io.Writer) bool {
	name := req.Param(0)
	if name == "" {
		fmt.Fprintln(out, "Usage: mkdir <directory_name>")
		return false
	}
	p, err := fs.resolve(name)
	if err != nil {
		fmt.Fprintf(out, "Error: %v: %s\n", err, name)
		return false
	}
	if _, err := os.Stat(p); err == nil {
		fmt.Fprintf(out, "Error: %s already exists\n", name)
		return false
	}
	if err := os.Mkdir(p, 0o755); err != nil {
		fmt.Fprintf(out, "Error: Failed to create directory %s\n", name)
		return false
	}
	fmt.Fprintf(out, "Created directory: %s\n", name)
	return true
}

func (fs *FS) df(req *command.Request, out io.Writer) bool {
	total, free, err := diskSpace(fs.Root)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return false
	}
	used := total - free

	fmt.Fprintln(out, "Disk Space Information")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Total Space: %s (%s bytes)\n", humanize.IBytes(total), humanize.Comma(int64(total)))
	fmt.Fprintf(out, "Used Space:  %s (%s bytes)\n", humanize.IBytes(used), humanize.Comma(int64(used)))
	fmt.Fprintf(out, "Free Space:  %s (%s bytes)\n", humanize.IBytes(free), humanize.Comma(int64(free)))
	if total > 0 {
		fmt.Fprintf(out, "Used: %.1f%%\n", float64(used)*100/float64(total))
	}
	return true
}

func (fs *FS) touch(req *command.Request, out io.Writer) bool {
	name := req.Param(0)
	if name == "" {
		fmt.Fprintln(out, "Usage: touch <filename>")
		return false
	}
	p, err := fs.resolve(name)
	if err != nil {
		fmt.Fprintf(out, "Error: %v: %s\n", err, name)
		return false
	}

	_, statErr := os.Stat(p)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		if statErr == nil {
			fmt.Fprintf(out, "Error: Could not update file: %s\n", name)
		} else {
			fmt.Fprintf(out, "Error: Could not create file: %s\n", name)
		}
		return false
	}
	f.Close()

	if statErr == nil {
		now := time.Now()
		os.Chtimes(p, now, now) //nolint:errcheck
		fmt.Fprintf(out, "Updated timestamp on: %s\n", name)
	} else {
		fmt.Fprintf(out, "Created empty file: %s\n", name)
	}
	return true
}

// write replaces the file with one line per text parameter.
func (fs *FS) write(req *command.Request, out io.Writer) bool {
	if len(req.Params) < 2 || req.Params[0] == "" {
		fmt.Fprintln(out, "Usage: write <filename> <text>")
		return false
	}
	name := req.Params[0]
	p, err := fs.resolve(name)
	if err != nil {
		fmt.Fprintf(out, "Error: %v: %s\n", err, name)
		return false
	}
	var b strings.Builder
	for _, line := range req.Params[1:] {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		fmt.Fprintf(out, "Error: Could not open file for writing: %s\n", name)
		return false
	}
	fmt.Fprintf(out, "Written to: %s\n", name)
	return true
}

func (fs *FS) head(req *command.Request, out io.Writer) bool {
	params := req.Params
	lines := DefaultHeadLines
	if len(params) > 2 && params[0] == "-n" {
		n, err := strconv.Atoi(params[1])
		if err != nil || n < 0 {
			fmt.Fprintf(out, "Error: invalid line count: %s\n", params[1])
			return false
		}
		lines = n
		params = params[2:]
	}
	if len(params) == 0 || params[0] == "" {
		fmt.Fprintln(out, "Usage: head [-n lines] <filename>")
		return false
	}
	name := params[0]
	p, fi, ok := fs.stat(out, name)
	if !ok {
		return false
	}
	if fi.IsDir() {
		fmt.Fprintf(out, "%s is a directory\n", name)
		return false
	}
	f, err := os.Open(p)
	if err != nil {
		fmt.Fprintf(out, "Error: Could not open file: %s\n", name)
		return false
	}
	defer f.Close()

	fmt.Fprintf(out, "First %d lines of %s\n", lines, name)
	fmt.Fprintln(out, rule)
	sc := bufio.NewScanner(f)
	for i := 0; i < lines && sc.Scan(); i++ {
		fmt.Fprintln(out, strings.TrimRight(sc.Text(), "\r"))
	}
	fmt.Fprintln(out, rule)
	return true
}
