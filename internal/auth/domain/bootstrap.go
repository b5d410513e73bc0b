package domain

// BootstrapData describes the first administrator created on an empty
// database.
type BootstrapData struct {
	AdminUsername string
	AdminPassword string
}
