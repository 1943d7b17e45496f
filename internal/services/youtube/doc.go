// Package youtube validates source links and looks up video metadata through
// github.com/kkdai/youtube/v2. Downloads themselves go through yt-dlp.
package youtube
