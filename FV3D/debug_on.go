//go:build growcfddebug

package FV3D

// Index helpers verify their arguments when built with -tags growcfddebug.
const checkBounds = true
