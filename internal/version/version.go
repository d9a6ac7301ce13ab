// ABOUTME: Version and product identification constants
// ABOUTME: Reported by the CLIs and in the remote control handshake
package version

import "fmt"

const (
	// Version is the release version
	Version = "0.3.0"

	// Product is the product name
	Product = "chipdec"

	// Manufacturer is the maker shown in device listings
	Manufacturer = "Resonate Protocol"
)

// String returns the banner printed by -version
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Manufacturer)
}
