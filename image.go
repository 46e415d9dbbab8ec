package rosbag2

import "strings"

const (
	ImageType           = "sensor_msgs/msg/Image"
	CompressedImageType = "sensor_msgs/msg/CompressedImage"
)

// Header mirrors std_msgs/msg/Header.
type Header struct {
	Stamp   Time   `rosbag:"stamp"`
	FrameID string `rosbag:"frame_id"`
}

// Image mirrors sensor_msgs/msg/Image. Data aliases the decoded payload.
type Image struct {
	Header      Header `rosbag:"header"`
	Height      uint32 `rosbag:"height"`
	Width       uint32 `rosbag:"width"`
	Encoding    string `rosbag:"encoding"`
	IsBigendian uint8  `rosbag:"is_bigendian"`
	Step        uint32 `rosbag:"step"`
	Data        []byte `rosbag:"data"`
}

// CompressedImage mirrors sensor_msgs/msg/CompressedImage. Data is already encoded
// in Format (jpeg, png, ...).
type CompressedImage struct {
	Header Header `rosbag:"header"`
	Format string `rosbag:"format"`
	Data   []byte `rosbag:"data"`
}

// IsCompressedImageType reports whether typeID carries an encoded image rather than
// a raw pixel buffer.
func IsCompressedImageType(typeID string) bool {
	return strings.HasSuffix(typeID, "CompressedImage")
}
