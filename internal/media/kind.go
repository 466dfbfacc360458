package media

// Kind is the coarse classification of a source, derived once at
// construction time. It decides which control surfaces are legal.
type Kind int

const (
	KindUnsupported Kind = iota
	KindAudio
	KindVideo
)

// String returns the kind name for logs and status output.
func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unsupported"
	}
}

// KindOf classifies a lowercase extension (without dot).
func KindOf(ext string) Kind {
	switch ext {
	case "mp3", "wav", "flac", "m4a":
		return KindAudio
	case "mp4", "avi", "mov", "mkv":
		return KindVideo
	default:
		return KindUnsupported
	}
}

// Kind classifies the source by extension, or by sniffed content type for
// byte sources.
func (s Source) Kind() Kind {
	return KindOf(s.Ext())
}
