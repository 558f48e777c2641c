package log

// Checked by pipeship.New. Logger and the field helpers keep the shape they
// had in 0.1.0.
const (
	Version              = "0.2.0"
	MinCompatibleVersion = "0.1.0"
)
