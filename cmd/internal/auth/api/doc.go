// Package api exposes Biblio's authentication endpoints over HTTP.
//
// It owns request/response shapes, credential verification, throttling,
// and the audit trail; token and session semantics live in the session
// package, route authorization in the guard package.
package api
