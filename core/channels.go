package core

// Channels is the supported channel table in scan order: 2.4 GHz 1-13
// followed by the 5 GHz UNII-1 and UNII-3 channels.
var Channels = [...]uint8{
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13,
	36, 40, 44, 48,
	149, 153, 157, 161, 165,
}

// ChannelAll is the scan channel value that selects all channels
const ChannelAll = 0

// IsValidChannel reports whether ch is in the channel table
func IsValidChannel(ch uint8) bool {
	for _, c := range Channels {
		if c == ch {
			return true
		}
	}
	return false
}
