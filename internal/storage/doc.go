// Package storage loads drawings and saves export artifacts.
//
// Locations are URLs. file:// URLs and plain paths are served from the local
// filesystem, relative paths resolving under a root directory. http and
// https URLs are fetched with GET and written with PUT.
//
// Every failure is returned as a *CollaboratorError naming the operation and
// location. Nothing is retried.
package storage
