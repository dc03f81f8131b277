package detect

import "testing"

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"no scales", func(c *Config) { c.Scales = nil }, true},
		{"negative scale", func(c *Config) { c.Scales = []float64{-0.5} }, true},
		{"threshold above one", func(c *Config) { c.Threshold = 1.5 }, true},
		{"zero clip limit", func(c *Config) { c.CLAHEClipLimit = 0 }, true},
		{"fps too low", func(c *Config) { c.FPS = 0 }, true},
		{"fps too high", func(c *Config) { c.FPS = 120 }, true},
		{"zero min matches", func(c *Config) { c.MinFeatureMatches = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigNormalized(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scales = []float64{1.5, 0.5, 1.0, 0.5, 1.5}

	norm := cfg.Normalized()
	want := []float64{0.5, 1.0, 1.5}
	if len(norm.Scales) != len(want) {
		t.Fatalf("normalized scales = %v, want %v", norm.Scales, want)
	}
	for i := range want {
		if norm.Scales[i] != want[i] {
			t.Fatalf("normalized scales = %v, want %v", norm.Scales, want)
		}
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
