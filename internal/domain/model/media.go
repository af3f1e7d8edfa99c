package model

// MediaType classifies the content of a stored message.
type MediaType string

const (
	MediaPhoto     MediaType = "photo"
	MediaVideo     MediaType = "video"
	MediaAudio     MediaType = "audio"
	MediaDocument  MediaType = "document"
	MediaAnimation MediaType = "animation"
	MediaVoice     MediaType = "voice"
	MediaVideoNote MediaType = "video_note"
	MediaSticker   MediaType = "sticker"
	MediaUnknown   MediaType = "unknown"
)

var mediaIcons = map[MediaType]string{
	MediaPhoto:     "🖼️",
	MediaVideo:     "🎬",
	MediaAudio:     "🎵",
	MediaDocument:  "📄",
	MediaAnimation: "🎭",
	MediaVoice:     "🎤",
	MediaVideoNote: "⭕",
	MediaSticker:   "🏷️",
}

// Icon returns the emoji shown next to search results.
func (m MediaType) Icon() string {
	if icon, ok := mediaIcons[m]; ok {
		return icon
	}
	return "📁"
}
