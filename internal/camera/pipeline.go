package camera

import (
	"fmt"
)

// GStreamerPipeline はJetsonのCSIカメラ用パイプライン文字列を生成する
// nvarguscamerasrc -> nvvidconv -> videoconvert -> appsink の構成で、
// appsink は drop=true のため古いフレームは捨てられ、プロデューサーはブロックしない
func GStreamerPipeline(sensorID, width, height, frameRate int) string {
	return fmt.Sprintf(
		"nvarguscamerasrc sensor-id=%d ! "+
			"video/x-raw(memory:NVMM), width=%d, height=%d, framerate=%d/1 ! "+
			"nvvidconv flip-method=0 ! video/x-raw, format=BGRx ! videoconvert ! "+
			"video/x-raw, format=BGR ! appsink drop=true",
		sensorID, width, height, frameRate,
	)
}

// Pipeline は記述子からパイプライン文字列を生成する
func (d Descriptor) Pipeline() string {
	d = d.WithDefaults()
	return GStreamerPipeline(d.SensorID, d.Width, d.Height, d.FrameRate)
}
