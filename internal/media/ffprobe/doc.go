// Package ffprobe inspects finished outputs with ffprobe and checks that they
// carry the streams their format promises.
package ffprobe
