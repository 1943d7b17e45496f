// Package media names the output containers a run can produce.
package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Format is a deliverable container.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
	FormatMP3  Format = "mp3"
)

// Formats lists every supported output format.
var Formats = []Format{FormatMP4, FormatWebM, FormatMP3}

// ParseFormat normalizes a client-supplied format name.
func ParseFormat(value string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(value)))
	if !f.Valid() {
		return "", fmt.Errorf("unsupported format %q", value)
	}
	return f, nil
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatMP4, FormatWebM, FormatMP3:
		return true
	}
	return false
}

// AudioOnly reports whether the format carries no video stream.
func (f Format) AudioOnly() bool { return f == FormatMP3 }

// Extension is the file extension without a leading dot.
func (f Format) Extension() string { return string(f) }

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatMP3 {
		return "audio/mpeg"
	}
	return "video/" + string(f)
}

func (f Format) String() string { return string(f) }

// DefaultQuality is the height cap local fetches request unless told otherwise.
const DefaultQuality = "1080p"

// MaxHeight extracts the vertical resolution cap from a quality label such as
// "720p". Labels without a numeric height ("best", "audio") return 0.
func MaxHeight(quality string) int {
	q := strings.ToLower(strings.TrimSpace(quality))
	q = strings.TrimSuffix(q, "p60")
	q = strings.TrimSuffix(q, "p")
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
