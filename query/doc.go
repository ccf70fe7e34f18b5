// Package query exposes go-command compatible read handlers over the
// moderation queue.
package query
