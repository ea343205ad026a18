// Package shell parses the line-oriented commands accepted by the
// regulator. Lines are tokenized like a POSIX shell, so quoted values and
// comments work:
//
//	START TARGET=7000
//	TARGET 6500
//	SET kp=60 ki=1 mode=error
//	STOP # heater off
//
// Verbs and keys are case-insensitive.
package shell
