package playlist

import "regexp"

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`m\.youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
}

var playlistIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`youtube\.com/embed/videoseries\?list=([a-zA-Z0-9_-]+)`),
}

var videoIDExact = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
var playlistIDExact = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ExtractVideoID pulls the video ID out of the YouTube URL shapes we accept.
// A bare 11-character ID passes through unchanged. Returns "" when nothing
// matches.
func ExtractVideoID(url string) string {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	if videoIDExact.MatchString(url) {
		return url
	}
	return ""
}

func IsValidVideoID(id string) bool {
	return videoIDExact.MatchString(id)
}

// ExtractPlaylistID pulls the playlist ID out of a playlist URL, or passes a
// bare ID through. Bare IDs must be longer than a video ID to avoid
// misclassifying one.
func ExtractPlaylistID(url string) string {
	for _, p := range playlistIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	if playlistIDExact.MatchString(url) && len(url) > 11 {
		return url
	}
	return ""
}
