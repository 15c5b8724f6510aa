package dissect

type errGeneric uint8

// Generic errors common to frame dissection.
const (
	_                     errGeneric = iota // non-initialized err
	ErrTruncated                            // truncated data
	ErrNotMine                              // frame not claimed by dissector
	ErrUnsupportedVersion                   // unsupported protocol version
	ErrBadLength                            // bad length
	ErrDepthExceeded                        // maximum nesting depth exceeded
	ErrSealed                               // registry sealed
)

func (err errGeneric) Error() string {
	return err.String()
}

func (err errGeneric) String() string {
	switch err {
	case ErrTruncated:
		return "truncated data"
	case ErrNotMine:
		return "frame not claimed by dissector"
	case ErrUnsupportedVersion:
		return "unsupported protocol version"
	case ErrBadLength:
		return "bad length"
	case ErrDepthExceeded:
		return "maximum nesting depth exceeded"
	case ErrSealed:
		return "registry sealed"
	}
	return "non-initialized err"
}
