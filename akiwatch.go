// Package akiwatch watches a municipal facility-reservation portal for newly
// available slots. It drives a browser session through the portal's
// multi-step search, extracts open slots from the paginated result pages,
// diffs them against the previous run and notifies about the new ones.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, goquery/, sqlite/).
package akiwatch
