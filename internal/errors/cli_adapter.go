package errors

import "fmt"

// ExitCodeFor maps an error to a process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	be, ok := AsBuildError(err)
	if !ok {
		return 1
	}
	switch be.Category {
	case CategoryValidation:
		return 2
	case CategoryConfig:
		return 7
	case CategoryInternal:
		return 10
	case CategoryGraph, CategoryConsistency, CategoryWrite, CategoryFinish:
		return 11
	default:
		return 1
	}
}

// FormatForCLI renders an error for terminal display. Config and
// validation errors show the bare message; everything else keeps the
// category prefix so build failures are attributable.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	be, ok := AsBuildError(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	switch be.Category {
	case CategoryConfig, CategoryValidation:
		return be.Message
	default:
		return be.Error()
	}
}
