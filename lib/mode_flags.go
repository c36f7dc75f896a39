package lib

// RunMode indicates whether a run uses a single rank or several in-process
// ranks.
type RunMode int

const (
	SerialMode RunMode = iota
	LocalRanksMode
)

func (m RunMode) String() string {
	switch m {
	case SerialMode:
		return "serial"
	case LocalRanksMode:
		return "local-ranks"
	}
	return "unknown"
}

// CheckStrictness indicates how Check should behave when it encounters an
// error.
type CheckStrictness int

const (
	CrashOnError CheckStrictness = iota
	WarnOnError
)
