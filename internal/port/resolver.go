package port

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shinji-kodama/coredeck/internal/model"
)

// Preference lists of well-known ports, tried in order before falling back
// to whatever a container publishes first.
var (
	// FrontendPreferredPorts covers Create React App (3000) and Vite (5173).
	FrontendPreferredPorts = []int{3000, 5173}

	// BackendPreferredPorts covers the default API port (8088) and the
	// common "frontend port + 1" convention (3001).
	BackendPreferredPorts = []int{8088, 3001}
)

// runtimeMappingRegex matches the runtime-reported form of a published
// port, e.g. "0.0.0.0:49153->3000/tcp". Group 1 is the host port.
var runtimeMappingRegex = regexp.MustCompile(`:(\d+)->\d+/tcp$`)

// digitsRegex matches a bare container port such as "3000".
var digitsRegex = regexp.MustCompile(`^\d+$`)

// ExtractHostPort returns the host-side port of a single port mapping.
//
// The shapes are tried in this order, first match wins:
//
//	"0.0.0.0:49153->3000/tcp" → "49153" (runtime-reported)
//	"5000:3000"               → "5000"  (host:container)
//	"127.0.0.1:5000:3000"     → "5000"  (ip:host:container)
//	"3000"                    → "3000"  (declared, not published)
//
// Anything else is unparseable and reported as absent.
func ExtractHostPort(mapping string) (string, bool) {
	if m := runtimeMappingRegex.FindStringSubmatch(mapping); m != nil {
		return m[1], true
	}

	parts := strings.Split(mapping, ":")
	switch len(parts) {
	case 2:
		return parts[0], true
	case 3:
		return parts[1], true
	}

	if digitsRegex.MatchString(mapping) {
		return mapping, true
	}
	return "", false
}

// LocalURL formats the browsable URL for a host port.
func LocalURL(hostPort string) string {
	return "http://localhost:" + hostPort
}

// findPreferred returns the URL of the first mapping whose host port,
// as text, equals preferred.
//
// NOTE: preferred is compared against the extracted *host* port, not the
// container port. This only picks the intended mapping when both sides
// are equal, which holds for the "N:N" mappings the start action builds.
func findPreferred(ports []string, preferred int) (string, bool) {
	want := strconv.Itoa(preferred)
	for _, mapping := range ports {
		if host, ok := ExtractHostPort(mapping); ok && host == want {
			return LocalURL(host), true
		}
	}
	return "", false
}

// firstMappingURL returns the URL of a record's first mapping, if it parses
// to a non-empty host port. Later mappings are not consulted.
func firstMappingURL(ports []string) (string, bool) {
	if len(ports) == 0 {
		return "", false
	}
	host, ok := ExtractHostPort(ports[0])
	if !ok || host == "" {
		return "", false
	}
	return LocalURL(host), true
}

// ResolveURL picks a browsable URL for one container. Each preferred port
// is tried in order against all of the record's mappings; if none match,
// the first mapping is used.
func ResolveURL(rec model.ContainerRecord, preferred []int) (string, bool) {
	for _, p := range preferred {
		if url, ok := findPreferred(rec.Ports, p); ok {
			return url, true
		}
	}
	return firstMappingURL(rec.Ports)
}

// scanAll resolves a URL across every container when no guessed
// subdirectory produced one. A preferred port dominates record order: all
// records are checked for preferred[0] before any is checked for
// preferred[1]. Failing that, the first record whose first mapping parses
// wins.
func scanAll(containers *model.ContainersMap, preferred []int) (string, bool) {
	keys := containers.Keys()

	for _, p := range preferred {
		for _, k := range keys {
			rec, _ := containers.Get(k)
			if url, ok := findPreferred(rec.Ports, p); ok {
				return url, true
			}
		}
	}

	for _, k := range keys {
		rec, _ := containers.Get(k)
		if url, ok := firstMappingURL(rec.Ports); ok {
			return url, true
		}
	}
	return "", false
}

// pick resolves one slot: the guessed subdirectory first, then the
// global scan.
func pick(containers *model.ContainersMap, guess string, preferred []int) string {
	if guess != "" {
		if rec, ok := containers.Get(guess); ok {
			if url, ok := ResolveURL(rec, preferred); ok {
				return url
			}
		}
	}
	if url, ok := scanAll(containers, preferred); ok {
		return url
	}
	return ""
}

// ResolveURLs derives the frontend and backend URLs from the running
// containers and the user's guessed subdirectory keys.
//
// It is a pure function of its inputs. It never fails: unparseable
// mappings are skipped, and an empty map or a map with no usable port
// yields an empty ResolvedURLs.
func ResolveURLs(containers *model.ContainersMap, frontendGuess, backendGuess string) model.ResolvedURLs {
	return model.ResolvedURLs{
		Frontend: pick(containers, frontendGuess, FrontendPreferredPorts),
		Backend:  pick(containers, backendGuess, BackendPreferredPorts),
	}
}
