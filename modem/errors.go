package modem

import "errors"

var (
	// ErrNilContext reports a nil context passed to a function that
	// requires a valid context. SerialDialer.Dial does not return this
	// value: it reports a nil context with its own "gsm: context is nil"
	// error.
	//
	// This indicates a programming error. All functions that accept a context
	// parameter require a non-nil context, even if it's context.Background().
	ErrNilContext = errors.New("context is nil")

	// ErrMissingPort reports an attempt to dial a serial connection without
	// a port name. SerialDialer.Dial does not return this value: it reports
	// an empty PortName with its own "gsm: serial port name is required"
	// error.
	//
	// This indicates a configuration error. The PortName field must be set
	// to a valid device path (e.g., "/dev/ttyUSB0", "COM3") before dialing.
	ErrMissingPort = errors.New("missing required serial port name")

	// ErrPortOpenFail is returned when the underlying serial port cannot be
	// opened.
	//
	// This typically indicates a hardware issue (device not connected),
	// permission problem (insufficient access rights), or that another
	// process is already using the port. The wrapped error provides the
	// specific failure reason.
	ErrPortOpenFail = errors.New("failed to open serial port")

	// ErrNoDialer is returned by ConfigBuilder.Build and New when no Dialer
	// was configured.
	ErrNoDialer = errors.New("modem: no dialer configured")

	// ErrSIMPinRequired is returned by New's bring-up sequence when the SIM
	// reports AT+CPIN: SIM PIN but Config.SimPIN is empty.
	ErrSIMPinRequired = errors.New("modem: SIM PIN required but not configured")

	// ErrNotInitialized is returned by any Modem method called before New
	// has completed, or after Close.
	ErrNotInitialized = errors.New("modem: not initialized")
)
