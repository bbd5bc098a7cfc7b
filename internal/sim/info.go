package sim

import "fmt"

// Info describes the simulation column schema: which CSV columns hold the
// simulation input parameters (the quantities a model predicts) and which
// hold the simulation outputs (the quantities a model consumes), together
// with the physical bounds of each input parameter.
type Info struct {
	SimInputNames []string  `json:"sim_input_names"`
	SimInputMins  []float64 `json:"sim_input_mins"`
	SimInputMaxs  []float64 `json:"sim_input_maxs"`

	SimOutputNames []string  `json:"sim_output_names"`
	SimOutputMins  []float64 `json:"sim_output_mins"`
	SimOutputMaxs  []float64 `json:"sim_output_maxs"`
}

func (inf Info) NumSimInputs() int  { return len(inf.SimInputNames) }
func (inf Info) NumSimOutputs() int { return len(inf.SimOutputNames) }

// NumSimColumns is the count of label plus input columns, i.e. everything
// before any GAN generation-parameter columns.
func (inf Info) NumSimColumns() int { return inf.NumSimInputs() + inf.NumSimOutputs() }

func (inf Info) Validate() error {
	if len(inf.SimInputNames) == 0 {
		return fmt.Errorf("simulation info requires at least one sim input column")
	}
	if len(inf.SimOutputNames) == 0 {
		return fmt.Errorf("simulation info requires at least one sim output column")
	}
	if len(inf.SimInputMins) != len(inf.SimInputNames) || len(inf.SimInputMaxs) != len(inf.SimInputNames) {
		return fmt.Errorf("sim input bounds must match sim input names: %d mins, %d maxs, %d names",
			len(inf.SimInputMins), len(inf.SimInputMaxs), len(inf.SimInputNames))
	}
	if len(inf.SimOutputMins) != len(inf.SimOutputNames) || len(inf.SimOutputMaxs) != len(inf.SimOutputNames) {
		return fmt.Errorf("sim output bounds must match sim output names: %d mins, %d maxs, %d names",
			len(inf.SimOutputMins), len(inf.SimOutputMaxs), len(inf.SimOutputNames))
	}
	for i := range inf.SimInputNames {
		if inf.SimInputMins[i] > inf.SimInputMaxs[i] {
			return fmt.Errorf("sim input %q has min > max: %g > %g",
				inf.SimInputNames[i], inf.SimInputMins[i], inf.SimInputMaxs[i])
		}
	}
	return nil
}

// OutputRange reports the [min, max] bounds of the i'th sim output column.
func (inf Info) OutputRange(i int) (float64, float64) {
	return inf.SimOutputMins[i], inf.SimOutputMaxs[i]
}

// DefaultInfo is the wireless power-transfer coil schema: seven design
// parameters are recovered from five measured transfer quantities.
func DefaultInfo() Info {
	return Info{
		SimInputNames: []string{
			"turns_tx", "turns_rx", "radius_tx_mm", "radius_rx_mm",
			"distance_mm", "frequency_khz", "load_ohm",
		},
		SimInputMins: []float64{5, 5, 10, 10, 5, 80, 1},
		SimInputMaxs: []float64{50, 50, 100, 100, 150, 300, 100},

		SimOutputNames: []string{
			"efficiency", "power_out_w", "voltage_out_v", "current_out_a", "coupling_k",
		},
		SimOutputMins: []float64{0, 0, 0, 0, 0},
		SimOutputMaxs: []float64{1, 500, 120, 30, 1},
	}
}
