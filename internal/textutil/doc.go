// Package textutil builds filesystem-safe names for saved clips.
package textutil
