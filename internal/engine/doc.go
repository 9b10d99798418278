// Package engine orchestrates the domain functions with their external
// collaborators: the predictive service, the weather provider, the port
// directory and the alert channel.
//
// Nothing in this package returns an error for a collaborator outage. The
// Scorer falls back to the heuristic tier and the Sampler reports "no
// forecast". Errors are reserved for bad caller input and local storage
// failures.
package engine
