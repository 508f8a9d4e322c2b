package pim

import "fmt"

// ConfigurationError marks a fatal startup failure: a missing trace file,
// an unparsable opcode, or a required parameter absent (§7). Callers
// should abort the run on this error; it is never recovered mid-stream.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Msg)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// BoundsError marks a bank index outside [0, N). Per §7 this is recovered
// locally by the caller (skip the operation and continue); it is exported
// so callers can distinguish it from a ConfigurationError via errors.As.
type BoundsError struct {
	Bank BankIndex
	N    int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("bank index %d outside [0, %d)", e.Bank, e.N)
}
