package transport

import "errors"

var (
	// ErrInvalidProxy is returned when the proxy URL cannot be parsed or
	// has no host:port.
	ErrInvalidProxy = errors.New("invalid proxy: expected scheme://host:port")

	// ErrUnsupportedProxy is returned for a proxy scheme other than
	// socks5, socks5h, http or https.
	ErrUnsupportedProxy = errors.New("unsupported proxy scheme")
)
