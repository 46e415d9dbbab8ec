package rosbag2

import (
	"fmt"
	"time"
)

// Time mirrors builtin_interfaces/msg/Time.
type Time struct {
	Sec     int32  `rosbag:"sec"`
	Nanosec uint32 `rosbag:"nanosec"`
}

// Time converts t to a time.Time in UTC.
func (t Time) Time() time.Time {
	return time.Unix(int64(t.Sec), int64(t.Nanosec)).UTC()
}

// Key renders t as "<sec>_<nanosec>", the naming key of image artifacts.
func (t Time) Key() string {
	return fmt.Sprintf("%d_%d", t.Sec, t.Nanosec)
}

// StampToTime converts a storage timestamp, nanoseconds since the epoch, to a time.Time.
func StampToTime(nsec int64) time.Time {
	sec := nsec / int64(time.Second)
	nsec -= sec * int64(time.Second)
	return time.Unix(sec, nsec).UTC()
}
