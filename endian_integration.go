//go:build integration

package rosbag2

import (
	"encoding/binary"
)

// Forces the copying slice decoders so both code paths get exercised by the
// integration run, regardless of the host byte order.
var (
	hostEndian binary.ByteOrder = binary.BigEndian
	fastSlices                  = false
)
