package render

import (
	"fmt"
	"image"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/hdr-tonemap/pkg/backend"
	"github.com/abworrall/hdr-tonemap/pkg/pixdump"
	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

type Config struct {
	Verbosity int

	Backend   string // scalar, parallel, kernel
	Fallback  bool   // if the kernel backend can't be had, run scalar instead of failing
	Workers   int
	GroupSize int

	OutputDir  string
	Scene      string // woven into output filenames; defaults to the input's base name
	Format     string // p3, p6, png
	ColorSpace string // rgb, ycbcr709

	Policy  string  // epsilon, reject
	Epsilon float64 // substituted for non-positive luminance under the epsilon policy
	Key     float64 // middle-gray key
	Gamma   float64 // exponent for the gamma transfer

	Variants []Variant

	Compare     bool // also render on the scalar backend, and diff
	DumpHDR     bool // write each working frame as Radiance RGBE
	DumpGrids   bool // write luminance diagnostics as PNG
	DebugPixels []image.Point
}

func NewConfig() Config {
	return Config{
		Backend:    string(backend.KindScalar),
		OutputDir:  ".",
		Format:     string(pixdump.FormatP3),
		ColorSpace: string(tonemap.ColorSpaceRGB),
		Policy:     string(tonemap.PolicyEpsilon),
		Epsilon:    tonemap.DefaultEpsilon,
		Key:        tonemap.KeyValue,
		Gamma:      tonemap.DefaultGamma,
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func LoadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %w", filename, err)
	}
	c, err := newConfigFromYaml(contents)
	if err != nil {
		return Config{}, fmt.Errorf("config parse %s: %w", filename, err)
	}
	return c, nil
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("# can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// Finalize fills in the default variants and checks every name and
// number the renderer will rely on.
func (c *Config) Finalize() error {
	if _, err := backend.ParseKind(c.Backend); err != nil {
		return err
	}
	if _, err := tonemap.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if _, err := tonemap.ParseColorSpace(c.ColorSpace); err != nil {
		return err
	}
	if !(c.Epsilon > 0) {
		return fmt.Errorf("epsilon %g must be positive", c.Epsilon)
	}
	if !(c.Key > 0) {
		return fmt.Errorf("key %g must be positive", c.Key)
	}
	if !(c.Gamma > 0) {
		return fmt.Errorf("gamma %g must be positive", c.Gamma)
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}

	if len(c.Variants) == 0 {
		c.Variants = DefaultVariants()
	}
	for i := range c.Variants {
		v := &c.Variants[i]
		if v.Format == "" {
			v.Format = c.Format
		}
		if v.Gamma == 0 && v.Transfer == string(tonemap.TransferGamma) {
			v.Gamma = c.Gamma
		}
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
