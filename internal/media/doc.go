// Package media maps logical asset references onto retrieval addresses.
//
// A reference is a file name with an optional namespace prefix:
//
//	intro.mp3            page-local
//	volume:theme.mp3     shared by every page of the volume
//	series:logo.png      shared by every volume of the series
//	global:click.mp3     shared by everything
//
// Each namespace has one path template. Resolver is the only place the
// mapping is encoded and has no side effects.
package media
