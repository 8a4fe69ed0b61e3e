package icons

const (
	// Server Icons (Nerd Font)
	IconMongo    = "\ue7a4"
	IconDatabase = "\uf1c0"

	// Utility Icons
	IconLock      = "\U000f033e"
	IconSuccess   = "✓"
	IconError     = "⚠"
	IconSelect    = "▸"
	IconBullet    = "•"
	IconSeparator = "  •  "
	IconBusy      = "…"
)

// ServerIcon returns the status bar icon for a connection, with the lock
// glyph for profiles that go through an SSH tunnel.
func ServerIcon(connected, tunneled bool) string {
	switch {
	case !connected:
		return IconDatabase
	case tunneled:
		return IconMongo + " " + IconLock
	default:
		return IconMongo
	}
}
