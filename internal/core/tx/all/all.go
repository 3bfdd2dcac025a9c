// Package all imports all instruction sub-packages to trigger their init() registrations.
// Import this package in the main application to ensure all instruction types are registered.
package all

import (
	_ "github.com/LeJamon/offerd/internal/core/tx/account"
	_ "github.com/LeJamon/offerd/internal/core/tx/offer"
)
