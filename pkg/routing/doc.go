// Package routing projects an inventory.Model into the reverse proxy's HTTP
// routing document and checks the model for port and name collisions.
//
// Render and Validate are pure: they only read the model and may be called
// concurrently on a shared, read-only Model.
package routing
