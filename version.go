// Package slist builds the header list argument of a C-style HTTP transfer
// library and keeps every header string alive, and released exactly once,
// for the scope of one transfer.
package slist

const Version = "0.1.0"
