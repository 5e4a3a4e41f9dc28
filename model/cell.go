package model

// CellConfig is the static configuration of a DU cell. It is registered once
// at startup and never modified afterwards.
type CellConfig struct {
	Index      CellIndex `yaml:"index" json:"index"`
	PCI        uint16    `yaml:"pci" json:"pci"`
	Numerology uint8     `yaml:"numerology" json:"numerology"`
	DLARFCN    uint32    `yaml:"dl_arfcn" json:"dl_arfcn"`

	// HARQ entity dimensions applied to every UE-cell created on this cell.
	NofDLHARQs int `yaml:"nof_dl_harqs" json:"nof_dl_harqs"`
	NofULHARQs int `yaml:"nof_ul_harqs" json:"nof_ul_harqs"`
	MaxDLRetx  int `yaml:"max_dl_retx" json:"max_dl_retx"`
	MaxULRetx  int `yaml:"max_ul_retx" json:"max_ul_retx"`
}

// Default HARQ dimensions used when a cell config leaves them unset.
const (
	DefaultNofHARQs = 8
	DefaultMaxRetx  = 4
)

// WithDefaults returns a copy with zero HARQ dimensions filled in.
func (c CellConfig) WithDefaults() CellConfig {
	if c.NofDLHARQs == 0 {
		c.NofDLHARQs = DefaultNofHARQs
	}
	if c.NofULHARQs == 0 {
		c.NofULHARQs = DefaultNofHARQs
	}
	if c.MaxDLRetx == 0 {
		c.MaxDLRetx = DefaultMaxRetx
	}
	if c.MaxULRetx == 0 {
		c.MaxULRetx = DefaultMaxRetx
	}
	return c
}
