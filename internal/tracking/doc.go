// Package tracking turns polled device reports into map-ready vehicle state.
//
// A poll cycle fetches the bus list and the device location list, normalizes
// every fix against the operating Region, joins reports to buses by plate
// number and publishes a Snapshot. Buses that somebody is watching also get a
// 24h Trail, which is snapped to roads and revealed progressively by the
// Animator.
package tracking
