package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"ncklabs.com/monster-detector-go/internal/capture"
	"ncklabs.com/monster-detector-go/internal/detect"
)

// Settings is everything the application persists between runs: the
// detection parameters plus the last capture region and template path.
type Settings struct {
	Detect       detect.Config
	Region       capture.Region
	TemplatePath string
}

// DefaultSettings returns the out-of-the-box configuration.
func DefaultSettings() Settings {
	return Settings{Detect: detect.DefaultConfig()}
}

// LoadSettings loads configuration from a Settings.ini file. Missing keys
// fall back to defaults, so an empty or absent section is fine.
func LoadSettings(path string) (Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load config file: %w", err)
	}
	return settingsFromFile(cfg), nil
}

func settingsFromFile(cfg *ini.File) Settings {
	s := DefaultSettings()

	det := cfg.Section("Detection")
	if raw := det.Key("Scales").MustString(""); raw != "" {
		if scales := parseScales(raw); len(scales) > 0 {
			s.Detect.Scales = scales
		}
	}
	s.Detect.Threshold = det.Key("Threshold").MustFloat64(detect.DefaultThreshold)
	s.Detect.UsePreprocessing = det.Key("UsePreprocessing").MustBool(true)
	s.Detect.CLAHEClipLimit = det.Key("ClaheClipLimit").MustFloat64(detect.DefaultCLAHEClipLimit)
	s.Detect.MinFeatureMatches = det.Key("MinFeatureMatches").MustInt(detect.DefaultMinFeatMatches)
	s.Detect.MaxFeatures = det.Key("MaxFeatures").MustInt(detect.DefaultMaxFeatures)
	s.Detect.SaveDebugImages = det.Key("SaveDebugImages").MustBool(false)

	pos := cfg.Section("Position")
	s.Detect.OffsetX = pos.Key("OffsetX").MustInt(0)
	s.Detect.OffsetY = pos.Key("OffsetY").MustInt(0)
	s.Detect.UseCenterPosition = pos.Key("UseCenterPosition").MustBool(true)

	sess := cfg.Section("Session")
	s.Detect.FPS = sess.Key("FPS").MustInt(detect.DefaultFPS)
	s.TemplatePath = sess.Key("TemplatePath").MustString("")

	reg := cfg.Section("Region")
	s.Region = capture.Region{
		X:      reg.Key("X").MustInt(0),
		Y:      reg.Key("Y").MustInt(0),
		Width:  reg.Key("Width").MustInt(0),
		Height: reg.Key("Height").MustInt(0),
	}

	return s
}

// SaveSettings writes configuration back to a Settings.ini file.
func SaveSettings(path string, s Settings) error {
	cfg := ini.Empty()

	det := cfg.Section("Detection")
	det.Key("Scales").SetValue(formatScales(s.Detect.Scales))
	det.Key("Threshold").SetValue(strconv.FormatFloat(s.Detect.Threshold, 'f', -1, 64))
	det.Key("UsePreprocessing").SetValue(strconv.FormatBool(s.Detect.UsePreprocessing))
	det.Key("ClaheClipLimit").SetValue(strconv.FormatFloat(s.Detect.CLAHEClipLimit, 'f', -1, 64))
	det.Key("MinFeatureMatches").SetValue(strconv.Itoa(s.Detect.MinFeatureMatches))
	det.Key("MaxFeatures").SetValue(strconv.Itoa(s.Detect.MaxFeatures))
	det.Key("SaveDebugImages").SetValue(strconv.FormatBool(s.Detect.SaveDebugImages))

	pos := cfg.Section("Position")
	pos.Key("OffsetX").SetValue(strconv.Itoa(s.Detect.OffsetX))
	pos.Key("OffsetY").SetValue(strconv.Itoa(s.Detect.OffsetY))
	pos.Key("UseCenterPosition").SetValue(strconv.FormatBool(s.Detect.UseCenterPosition))

	sess := cfg.Section("Session")
	sess.Key("FPS").SetValue(strconv.Itoa(s.Detect.FPS))
	sess.Key("TemplatePath").SetValue(s.TemplatePath)

	reg := cfg.Section("Region")
	reg.Key("X").SetValue(strconv.Itoa(s.Region.X))
	reg.Key("Y").SetValue(strconv.Itoa(s.Region.Y))
	reg.Key("Width").SetValue(strconv.Itoa(s.Region.Width))
	reg.Key("Height").SetValue(strconv.Itoa(s.Region.Height))

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// parseScales reads a comma-separated scale list, skipping bad entries.
func parseScales(raw string) []float64 {
	parts := strings.Split(raw, ",")
	scales := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v <= 0 {
			continue
		}
		scales = append(scales, v)
	}
	return scales
}

func formatScales(scales []float64) string {
	parts := make([]string, len(scales))
	for i, v := range scales {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
