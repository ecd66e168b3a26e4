package easel

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the editor's tunables. Field defaults match DefaultConfig.
// LoadConfig overrides them from EASEL_* environment variables.
type Config struct {
	// Remote encoding.
	MaxRemoteDim int `envconfig:"MAX_REMOTE_DIM" default:"1024"`
	JPEGQuality  int `envconfig:"JPEG_QUALITY" default:"80"`

	// Selection hints.
	BrushWidth  float64 `envconfig:"BRUSH_WIDTH" default:"30"`
	HintPadding float64 `envconfig:"HINT_PADDING" default:"120"`
	CropPadding int     `envconfig:"CROP_PADDING" default:"20"`

	// Mask thresholding: luminance at or below MaskFloor is transparent,
	// above MaskCeiling opaque, ramped by MaskGain in between.
	MaskFloor   float64 `envconfig:"MASK_FLOOR" default:"30"`
	MaskCeiling float64 `envconfig:"MASK_CEILING" default:"220"`
	MaskGain    float64 `envconfig:"MASK_GAIN" default:"1.2"`
	ErodePasses int     `envconfig:"ERODE_PASSES" default:"2"`

	// Place dilation.
	DilateSigma  float64 `envconfig:"DILATE_SIGMA" default:"25"`
	DilatePasses int     `envconfig:"DILATE_PASSES" default:"3"`

	// Canvas behavior.
	ZoomSpeed        float64 `envconfig:"ZOOM_SPEED" default:"0.001"`
	GridSize         float64 `envconfig:"GRID_SIZE" default:"50"`
	ShowGrid         bool    `envconfig:"SHOW_GRID" default:"true"`
	DuplicateGap     float64 `envconfig:"DUPLICATE_GAP" default:"40"`
	DefaultNodeWidth float64 `envconfig:"DEFAULT_NODE_WIDTH" default:"400"`
	MinResize        float64 `envconfig:"MIN_RESIZE" default:"10"`
	HistoryLimit     int     `envconfig:"HISTORY_LIMIT" default:"100"`

	// Generation.
	MaxContextImages int `envconfig:"MAX_CONTEXT_IMAGES" default:"14"`

	ShimmerPeriod time.Duration `envconfig:"SHIMMER_PERIOD" default:"1100ms"`
	Debug         bool          `envconfig:"DEBUG_CHECKS" default:"false"`
}

// DefaultConfig returns the built-in configuration without reading the
// environment.
func DefaultConfig() Config {
	return Config{
		MaxRemoteDim:     1024,
		JPEGQuality:      80,
		BrushWidth:       30,
		HintPadding:      120,
		CropPadding:      20,
		MaskFloor:        30,
		MaskCeiling:      220,
		MaskGain:         1.2,
		ErodePasses:      2,
		DilateSigma:      25,
		DilatePasses:     3,
		ZoomSpeed:        DefaultZoomSpeed,
		GridSize:         50,
		ShowGrid:         true,
		DuplicateGap:     40,
		DefaultNodeWidth: 400,
		MinResize:        DefaultMinSize,
		HistoryLimit:     DefaultHistoryLimit,
		MaxContextImages: 14,
		ShimmerPeriod:    1100 * time.Millisecond,
	}
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("easel", &cfg); err != nil {
		return Config{}, fmt.Errorf("easel: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot work with.
func (c Config) Validate() error {
	switch {
	case c.MaxRemoteDim <= 0:
		return fmt.Errorf("easel: MaxRemoteDim must be positive, got %d", c.MaxRemoteDim)
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return fmt.Errorf("easel: JPEGQuality must be in [1,100], got %d", c.JPEGQuality)
	case c.MaskCeiling <= c.MaskFloor:
		return fmt.Errorf("easel: MaskCeiling %v must exceed MaskFloor %v", c.MaskCeiling, c.MaskFloor)
	case c.MinResize < 1:
		return fmt.Errorf("easel: MinResize must be at least 1, got %v", c.MinResize)
	case c.DefaultNodeWidth < 1:
		return fmt.Errorf("easel: DefaultNodeWidth must be at least 1, got %v", c.DefaultNodeWidth)
	}
	return nil
}

func (c Config) maskRamp() MaskRamp {
	return MaskRamp{Floor: c.MaskFloor, Ceiling: c.MaskCeiling, Gain: c.MaskGain}
}
