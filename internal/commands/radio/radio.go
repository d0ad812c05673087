// Package radio implements the KA-Radio command set (cli.* and sys.*)
// so existing KA-Radio front ends can control a Player over a command
// session. Replies are bracketed with the "##CLI." markers those front
// ends parse.
package radio

import (
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"

	"tinytelnet/internal/command"
	"tinytelnet/util"
)

// DefaultVersion is reported by sys.version.
const DefaultVersion = "Release: 2.4, Revision: 0, KaRadio32"

const (
	maxVolume  = 254
	volumeStep = 0.05
	noParams   = ": no parameters"
)

// Radio serves the KA-Radio commands for a Player.
type Radio struct {
	Player Player
	// MaxListed caps cli.list output; 0 lists everything.
	MaxListed int
	Version   string
	// Reboot, when set, is run by sys.boot.
	Reboot func() error

	log *util.Logger
}

// New returns radio commands for p.
func New(p Player, log *util.Logger) *Radio {
	if log == nil {
		log = util.Discard()
	}
	return &Radio{Player: p, Version: DefaultVersion, log: log.With("radio")}
}

// Register adds the cli.* and sys.* commands to r.
func (rd *Radio) Register(r command.Registrar) {
	r.Handle("cli.start", command.HandlerFunc(rd.play), noParams)
	r.Handle("cli.play", command.HandlerFunc(rd.play), `: play("no")`)
	r.Handle("cli.stop", command.HandlerFunc(rd.stop), noParams)
	r.Handle("cli.vol", command.HandlerFunc(rd.volume), `: cli.vol[("0-254")]`)
	r.Handle("cli.vol+", command.HandlerFunc(rd.volumeUp), noParams)
	r.Handle("cli.vol-", command.HandlerFunc(rd.volumeDown), noParams)
	r.Handle("cli.list", command.HandlerFunc(rd.list), `: cli.list[("no")]`)
	r.Handle("cli.next", command.HandlerFunc(rd.next), noParams)
	r.Handle("cli.prev", command.HandlerFunc(rd.prev), noParams)
	r.Handle("cli.info", command.HandlerFunc(rd.info), noParams)
	r.Handle("sys.version", command.HandlerFunc(rd.version), noParams)
	r.Handle("sys.boot", command.HandlerFunc(rd.boot), noParams)
}

// ErrorHandler answers unknown commands the way KA-Radio front ends
// expect.
var ErrorHandler = command.HandlerFunc(func(req *command.Request, out io.Writer) bool {
	fmt.Fprintln(out, "##CMD_ERROR#")
	return true
})

func (rd *Radio) play(req *command.Request, out io.Writer) bool {
	if len(req.Params) == 1 {
		idx, _ := strconv.Atoi(req.Params[0])
		rd.log.Verbose("setting index to %d", idx)
		if !rd.Player.SetIndex(idx) {
			rd.log.Warn("no station at index %d", idx)
		}
	}
	rd.Player.Play()
	fmt.Fprintln(out)
	rd.printPlaying(out)
	return true
}

func (rd *Radio) stop(_ *command.Request, out io.Writer) bool {
	rd.Player.Stop()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "##CLI.STOPPED#")
	return true
}

func (rd *Radio) volume(req *command.Request, out io.Writer) bool {
	if len(req.Params) == 1 {
		v, _ := strconv.Atoi(req.Params[0])
		v = min(max(v, 0), maxVolume)
		rd.Player.SetVolume(float64(v) / maxVolume)
	}
	fmt.Fprintln(out)
	rd.printVolume(out)
	return true
}

func (rd *Radio) volumeUp(_ *command.Request, out io.Writer) bool {
	rd.Player.SetVolume(min(rd.Player.Volume()+volumeStep, 1))
	fmt.Fprintln(out)
	rd.printVolume(out)
	return true
}

func (rd *Radio) volumeDown(_ *command.Request, out io.Writer) bool {
	rd.Player.SetVolume(max(rd.Player.Volume()-volumeStep, 0))
	fmt.Fprintln(out)
	rd.printVolume(out)
	return true
}

// list prints the stations, or only the 1-based station given as
// parameter.
func (rd *Radio) list(req *command.Request, out io.Writer) bool {
	sources := rd.Player.Sources()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "##CLI.LIST#")
	if len(req.Params) > 0 {
		n, _ := strconv.Atoi(req.Params[0])
		if n >= 1 && n <= len(sources) {
			printListItem(out, n, sources[n-1])
		} else {
			rd.log.Warn("no station at index %d", n)
		}
	} else {
		for i, s := range sources {
			if rd.MaxListed > 0 && i >= rd.MaxListed {
				rd.log.Verbose("list limit reached: %d", rd.MaxListed)
				break
			}
			printListItem(out, i+1, s)
		}
	}
	fmt.Fprintln(out, "##CLI.LIST#")
	fmt.Fprintln(out)
	return true
}

func (rd *Radio) next(_ *command.Request, out io.Writer) bool {
	rd.Player.Next()
	fmt.Fprintln(out)
	rd.printPlaying(out)
	return true
}

func (rd *Radio) prev(_ *command.Request, out io.Writer) bool {
	rd.Player.Previous()
	fmt.Fprintln(out)
	rd.printPlaying(out)
	return true
}

func (rd *Radio) info(_ *command.Request, out io.Writer) bool {
	fmt.Fprintln(out)
	rd.printPlaying(out)
	return true
}

func (rd *Radio) version(_ *command.Request, out io.Writer) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, rd.Version)
	return true
}

func (rd *Radio) boot(_ *command.Request, out io.Writer) bool {
	if rd.Reboot == nil {
		fmt.Fprintln(out, "sys.boot: not supported")
		return false
	}
	fmt.Fprintln(out, "Rebooting...")
	if err := rd.Reboot(); err != nil {
		rd.log.Error("reboot: %v", err)
		fmt.Fprintf(out, "sys.boot: %v\n", err)
		return false
	}
	return true
}

func (rd *Radio) printPlaying(out io.Writer) {
	rd.printSource(out)
	rd.printVolume(out)
	if rd.Player.Active() {
		fmt.Fprintln(out, "##CLI.PLAYING#")
	} else {
		fmt.Fprintln(out, "CLI.STOPPED")
	}
}

// printSource reports the current source as URL, port and path. Web
// streams fill the URL and port; anything else is a local path.
func (rd *Radio) printSource(out io.Writer) {
	src := rd.Player.Source()
	var (
		urlSet, pathSet string
		port            int
	)
	if strings.HasPrefix(src, "http") {
		urlSet = src
		port = streamPort(src)
	} else {
		pathSet = src
	}
	fmt.Fprintf(out, "##CLI.URLSET#: %s\n", urlSet)
	fmt.Fprintf(out, "##CLI.PORTSET#: %d\n", port)
	fmt.Fprintf(out, "##CLI.PATHSET#: %s\n", pathSet)
}

func (rd *Radio) printVolume(out io.Writer) {
	fmt.Fprintf(out, "##CLI.VOL#:%d\n", int(math.Round(rd.Player.Volume()*maxVolume)))
}

func streamPort(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	if p, err := strconv.Atoi(u.Port()); err == nil {
		return p
	}
	if u.Scheme == "https" {
		return 443
	}
	return 80
}

func printListItem(out io.Writer, n int, name string) {
	fmt.Fprintf(out, "#CLI.LISTINFO#: %d, %s, %s\n", n, stationKey(name), name)
}

// stationKey is the file name of a source without its extension, or
// the source itself when it has no directory part.
func stationKey(name string) string {
	i := strings.LastIndex(name, "/")
	if i <= 0 {
		return name
	}
	key := name[i+1:]
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[:dot]
	}
	return key
}
