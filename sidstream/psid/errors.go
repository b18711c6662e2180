package psid

import "fmt"

// FormatError reports a tune file that cannot be played at all.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid SID file: %s", e.Reason)
}

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// Advisory is a non-fatal condition found while parsing a header.
type Advisory uint8

const (
	// AdvisoryRSID: real C64 environment expected, the tune may not play correctly.
	AdvisoryRSID Advisory = iota
	// AdvisoryZeroLoad: the load address was taken from the first two payload bytes.
	AdvisoryZeroLoad
	// AdvisoryZeroInit: the init address was cloned from the load address.
	AdvisoryZeroInit
	// AdvisoryZeroPlay: the play address must be read from the interrupt vector after init.
	AdvisoryZeroPlay
	// AdvisoryTimerSpeed: at least one song wants the CIA timer, only the 50Hz tick is emulated.
	AdvisoryTimerSpeed
	// AdvisoryMultiSID: extra SID chips are declared, only $D400 is captured.
	AdvisoryMultiSID
)

var advisoryDescriptions = map[Advisory]string{
	AdvisoryRSID:       "RSID files may not play properly",
	AdvisoryZeroLoad:   "load address is 0, reading it from the C64 binary data",
	AdvisoryZeroInit:   "init address is 0, cloning load address instead",
	AdvisoryZeroPlay:   "play address is 0, it will be read from the interrupt vector",
	AdvisoryTimerSpeed: "some songs require the CIA 1 timer (not implemented)",
	AdvisoryMultiSID:   "additional SID chips are not captured",
}

func (a Advisory) String() string {
	if desc, ok := advisoryDescriptions[a]; ok {
		return desc
	}
	return fmt.Sprintf("advisory(%d)", uint8(a))
}
