package render

import (
	"fmt"
	"strings"

	"github.com/abworrall/hdr-tonemap/pkg/pixdump"
	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

const (
	OpClamp            = "clamp"
	OpReinhardExtended = "reinhard-extended"
)

var Operators = []string{OpClamp, OpReinhardExtended, OpLinear, OpDrago03, OpReinhard05}

// A Variant is one rendition of the input: an operator, a transfer, and
// the bit depths to encode at. Name may contain "{scene}".
type Variant struct {
	Name      string
	Operator  string
	Transfer  string
	Gamma     float64 `yaml:",omitempty"`
	BitDepths []int   `yaml:"bitdepths,flow"`
	Format    string  `yaml:",omitempty"`
}

// DefaultVariants are the clamped baselines, without and with gamma
// correction, and the extended Reinhard rendition, each at 8 and 10 bits.
func DefaultVariants() []Variant {
	return []Variant{
		{Name: "clamped-{scene}-without-gamma-correction", Operator: OpClamp, Transfer: string(tonemap.TransferLinear), BitDepths: []int{8, 10}},
		{Name: "clamped-{scene}-with-gamma-correction", Operator: OpClamp, Transfer: string(tonemap.TransferGamma), BitDepths: []int{8, 10}},
		{Name: "reinhard-extended-{scene}-with-gamma-correction", Operator: OpReinhardExtended, Transfer: string(tonemap.TransferGamma), BitDepths: []int{8, 10}},
	}
}

// VariantsFor builds one variant per operator name. Reference operators
// produce display-ready output, so they are encoded without a transfer.
func VariantsFor(ops []string, transfer string) []Variant {
	out := []Variant{}
	for _, op := range ops {
		op = strings.TrimSpace(op)
		tr := transfer
		if IsReference(op) {
			tr = string(tonemap.TransferLinear)
		}
		out = append(out, Variant{
			Name:      fmt.Sprintf("%s-{scene}-%s", op, tr),
			Operator:  op,
			Transfer:  tr,
			BitDepths: []int{8, 10},
		})
	}
	return out
}

func (v Variant) Validate() error {
	known := false
	for _, op := range Operators {
		known = known || op == v.Operator
	}
	if !known {
		return fmt.Errorf("variant '%s': no operator named '%s', wanted %v", v.Name, v.Operator, Operators)
	}
	if _, err := tonemap.ParseTransfer(v.Transfer); err != nil {
		return fmt.Errorf("variant '%s': %w", v.Name, err)
	}
	format, err := pixdump.ParseFormat(v.Format)
	if err != nil {
		return fmt.Errorf("variant '%s': %w", v.Name, err)
	}
	if len(v.BitDepths) == 0 {
		return fmt.Errorf("variant '%s': no bit depths", v.Name)
	}
	for _, d := range v.BitDepths {
		if d != 8 && d != 10 {
			return fmt.Errorf("variant '%s': bit depth %d, want 8 or 10", v.Name, d)
		}
		if err := format.Supports(d); err != nil {
			return fmt.Errorf("variant '%s': %w", v.Name, err)
		}
	}
	return nil
}

func (v Variant) Encoder(depth int) tonemap.Encoder {
	return tonemap.Encoder{BitDepth: depth, Transfer: tonemap.Transfer(v.Transfer), Gamma: v.Gamma}
}

// FileName is "<name>-<depth>bit.<ext>", with the scene filled in.
func (v Variant) FileName(scene string, depth int) string {
	name := strings.ReplaceAll(v.Name, "{scene}", scene)
	return fmt.Sprintf("%s-%dbit%s", name, depth, pixdump.Format(v.Format).Ext())
}
