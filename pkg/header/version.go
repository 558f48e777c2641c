package header

// Checked by pipeship.New. From 0.2.0 SetField ignores names that are not
// HTTP tokens and the engine's own fields are reserved.
const (
	Version              = "0.2.0"
	MinCompatibleVersion = "0.2.0"
)
