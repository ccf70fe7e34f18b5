// Package command exposes go-command compatible handlers for the moderation
// queue lifecycle: premoderation, generic saves, approval and denial of
// single items or filtered batches. Commands are wired by the service layer
// and can be invoked by any transport.
package command
