package logic

import "time"

// Tuning constants for the six conditions.
const (
	DefaultSpeechToken = "open"
	DefaultSpeechCount = 3
	DefaultSpeechRetry = 1 * time.Second

	DefaultTiltAngle    = 45.0 // degrees
	DefaultGravity      = 9.8  // m/s²
	DefaultTiltInterval = 400 * time.Millisecond

	DefaultNorthTolerance = 10.0 // degrees either side of north

	DefaultWifiMinNetworks  = 3
	DefaultWifiScanInterval = 10 * time.Second

	DefaultSampleStride     = 4
	DefaultBlackChannelMax  = 30 // exclusive, 8-bit channel
	DefaultBrightPixelMin   = 100
	DefaultBlackPercentMin  = 30.0
	DefaultAvgBrightnessMax = 80.0
	DefaultBrightPercentMin = 5.0

	RequiredPositiveDetections = 4
	MaxNegativeCount           = 2
	DetectionCooldown          = 5 * time.Second
)

// Thresholds collects every tunable of the gate in one place.
type Thresholds struct {
	SpeechToken string
	SpeechCount int
	SpeechRetry time.Duration

	TiltAngle    float64
	Gravity      float64
	TiltInterval time.Duration

	NorthTolerance float64

	WifiTarget       string
	WifiMinNetworks  int
	WifiScanInterval time.Duration

	SampleStride     int
	BlackChannelMax  int
	BrightPixelMin   int
	BlackPercentMin  float64
	AvgBrightnessMax float64
	BrightPercentMin float64

	RequiredPositive int
	MaxNegative      int
	Cooldown         time.Duration
}

// DefaultThresholds returns the production tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SpeechToken: DefaultSpeechToken,
		SpeechCount: DefaultSpeechCount,
		SpeechRetry: DefaultSpeechRetry,

		TiltAngle:    DefaultTiltAngle,
		Gravity:      DefaultGravity,
		TiltInterval: DefaultTiltInterval,

		NorthTolerance: DefaultNorthTolerance,

		WifiMinNetworks:  DefaultWifiMinNetworks,
		WifiScanInterval: DefaultWifiScanInterval,

		SampleStride:     DefaultSampleStride,
		BlackChannelMax:  DefaultBlackChannelMax,
		BrightPixelMin:   DefaultBrightPixelMin,
		BlackPercentMin:  DefaultBlackPercentMin,
		AvgBrightnessMax: DefaultAvgBrightnessMax,
		BrightPercentMin: DefaultBrightPercentMin,

		RequiredPositive: RequiredPositiveDetections,
		MaxNegative:      MaxNegativeCount,
		Cooldown:         DetectionCooldown,
	}
}
