package diag

// Level orders diagnostic records from most chatty to most severe.
// Records at LevelWarning and above go to the warning stream and bump the
// sink's warning counter; everything below is status output subject to the
// verbosity threshold.
type Level int

const (
	LevelDebug2 Level = iota
	LevelDebug
	LevelVerbose
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelDebug2:
		return "DEBUG2"
	case LevelDebug:
		return "DEBUG"
	case LevelVerbose:
		return "VERBOSE"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// minVisible maps a verbosity setting to the lowest status level shown:
// 0 shows INFO, 1 adds VERBOSE, 2 adds DEBUG, 3 adds DEBUG2.
func minVisible(verbosity int) Level {
	min := LevelInfo - Level(verbosity)
	if min < LevelDebug2 {
		min = LevelDebug2
	}
	return min
}
