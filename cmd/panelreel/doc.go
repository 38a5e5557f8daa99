// Package main hosts the panelreel CLI.
//
// The Cobra command tree wraps the playback core for terminal use: play runs
// a volume headlessly on the wall clock, timeline inspects a page's cues, and
// mute, progress, and config manage client state. Configuration resolution
// and the optional env file are handled once in the root command so
// subcommands only deal with their own flags.
package main
