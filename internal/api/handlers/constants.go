package handlers

const (
	// Composition listing
	defaultPageSize = 50
	maxPageSize     = 200

	// MIDI responses
	contentTypeMIDI = "audio/midi"
	formatMIDI      = "midi"

	// Upper bound for raw MusicXML uploads
	maxMusicXMLBytes = 4 << 20
)
