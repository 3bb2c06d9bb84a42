// Package docker reads the local Docker daemon for the coredeck CLI.
//
// The backend normally reports running containers over HTTP. When it runs
// on this machine, "coredeck containers --source docker" asks the daemon
// directly instead: containers carrying the subdir label are collected into
// a ContainersMap with ports in the runtime-reported form
// ("0.0.0.0:49153->3000/tcp"), so the same URL resolver applies.
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
