package progress

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which tool marker a line carried.
type Kind int

const (
	KindNone Kind = iota
	// KindPercent is a downloader percentage, optionally with a fragment marker.
	KindPercent
	// KindDestination announces a new download sub-phase (file).
	KindDestination
	// KindFormats announces how many streams the downloader will fetch.
	KindFormats
	// KindMerge marks the downloader muxing its sub-phases together.
	KindMerge
	// KindElapsed is the transcoder's output position.
	KindElapsed
	// KindEnd is the transcoder's terminal marker.
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindPercent:
		return "percent"
	case KindDestination:
		return "destination"
	case KindFormats:
		return "formats"
	case KindMerge:
		return "merge"
	case KindElapsed:
		return "elapsed"
	case KindEnd:
		return "end"
	default:
		return "none"
	}
}

// Event is one parsed tool output line.
type Event struct {
	Kind      Kind
	Percent   float64
	Fragment  int
	Fragments int
	Path      string
	Formats   int
	Elapsed   time.Duration
}

// HasFragment reports whether the percentage was reported for a fragment.
func (e Event) HasFragment() bool {
	return e.Fragments > 0 && e.Fragment > 0
}

var (
	downloadPercentPattern = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)
	fragmentPattern        = regexp.MustCompile(`\(frag (\d+)/(\d+)\)`)
	destinationPattern     = regexp.MustCompile(`^\[download\]\s+Destination:\s+(.+)$`)
	formatsPattern         = regexp.MustCompile(`^\[info\]\s+\S+:\s+Downloading\s+\d+\s+format\(s\):\s+(\S+)`)
	mergePattern           = regexp.MustCompile(`^\[Merger\]\s+Merging formats`)
)

// ParseDownloadLine recognizes yt-dlp progress markers. Lines that carry none
// return false.
func ParseDownloadLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}
	if m := destinationPattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: KindDestination, Path: strings.TrimSpace(m[1])}, true
	}
	if m := downloadPercentPattern.FindStringSubmatch(line); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Event{}, false
		}
		ev := Event{Kind: KindPercent, Percent: pct}
		if f := fragmentPattern.FindStringSubmatch(line); f != nil {
			current, errC := strconv.Atoi(f[1])
			total, errT := strconv.Atoi(f[2])
			if errC == nil && errT == nil && total > 0 && current > 0 && current <= total {
				ev.Fragment = current
				ev.Fragments = total
			}
		}
		return ev, true
	}
	if m := formatsPattern.FindStringSubmatch(line); m != nil {
		return Event{Kind: KindFormats, Formats: len(strings.Split(m[1], "+"))}, true
	}
	if mergePattern.MatchString(line) {
		return Event{Kind: KindMerge}, true
	}
	return Event{}, false
}

// ParseTranscodeLine recognizes ffmpeg "-progress" key=value records.
// out_time_ms is reported by ffmpeg in microseconds despite its name.
func ParseTranscodeLine(line string) (Event, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Event{}, false
	}
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(key) {
	case "out_time_ms", "out_time_us":
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			// ffmpeg prints N/A before the first frame.
			return Event{}, false
		}
		if us < 0 {
			us = 0
		}
		return Event{Kind: KindElapsed, Elapsed: time.Duration(us) * time.Microsecond}, true
	case "progress":
		if value == "end" {
			return Event{Kind: KindEnd}, true
		}
	}
	return Event{}, false
}
