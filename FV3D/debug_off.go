//go:build !growcfddebug

package FV3D

const checkBounds = false
