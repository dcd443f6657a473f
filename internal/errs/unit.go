package errs

// UnitError ties a stock failure to the IMEI of the unit that raised it.
type UnitError struct {
	IMEI string
	Err  error
}

func (e *UnitError) Error() string { return "imei " + e.IMEI + ": " + e.Err.Error() }
func (e *UnitError) Unwrap() error  { return e.Err }
