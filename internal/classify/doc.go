// Package classify implements Sift's waterfall classification core: the
// Dispatcher (tier routing and fallback chaining), the RoutingTable (source →
// ordered tier chain), the domain model (Entry, Outcome, Method), and the
// aggregate metrics Recorder. Tier implementations live in subpackages.
package classify
