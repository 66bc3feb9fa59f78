// Package guard enforces authentication and role-based authorization on
// HTTP routes.
//
// The guard verifies the bearer access token offline (signature + denylist),
// then, for routes that declare required roles, re-reads the caller's
// current role from the user directory so role changes take effect on the
// very next request. Any verification or lookup failure rejects the request.
package guard
