package domain

import "strings"

// Kind is the storage type of a reading column.
type Kind int

const (
	KindFloat Kind = iota
	KindInteger
	KindTimestamp
)

// Column maps a header of the meter export onto a MeterData column.
type Column struct {
	Header string
	Name   string
	Kind   Kind
}

// Columns is the full MeterData column set in table order.
var Columns = []Column{
	{Header: "time(UTC)", Name: "time_utc", Kind: KindTimestamp},
	{Header: "error", Name: "error", Kind: KindInteger},
	{Header: "lowalarm", Name: "lowalarm", Kind: KindInteger},
	{Header: "highalarm", Name: "highalarm", Kind: KindInteger},
	{Header: "Accumulated Real Energy Net (kWh)", Name: "accumulated_real_energy_net_kwh", Kind: KindFloat},
	{Header: "Real Energy Quadrants 1 & 4, Import (kWh)", Name: "real_energy_quadrants_1_4_import_kwh", Kind: KindFloat},
	{Header: "Real Energy Quadrants 2 & 3, Export (kWh)", Name: "real_energy_quadrants_2_3_export_kwh", Kind: KindFloat},
	{Header: "Reactive Energy Quadrant 1 (VARh)", Name: "reactive_energy_quadrant_1_varh", Kind: KindFloat},
	{Header: "Reactive Energy Quadrant 2 (VARh)", Name: "reactive_energy_quadrant_2_varh", Kind: KindFloat},
	{Header: "Reactive Energy Quadrant 3 (VARh)", Name: "reactive_energy_quadrant_3_varh", Kind: KindFloat},
	{Header: "Reactive Energy Quadrant 4 (VARh)", Name: "reactive_energy_quadrant_4_varh", Kind: KindFloat},
	{Header: "Apparent Energy Net (VAh)", Name: "apparent_energy_net_vah", Kind: KindFloat},
	{Header: "Apparent Energy Quadrants 1 & 4 (VAh)", Name: "apparent_energy_quadrants_1_4_vah", Kind: KindFloat},
	{Header: "Apparent Energy Quadrants 2 & 3 (VAh)", Name: "apparent_energy_quadrants_2_3_vah", Kind: KindFloat},
	{Header: "Total Net Instantaneous Real Power (kW)", Name: "total_net_instantaneous_real_power_kw", Kind: KindFloat},
	{Header: "Total Net Instantaneous Reactive Power (kVAR)", Name: "total_net_instantaneous_reactive_power_kvar", Kind: KindFloat},
	{Header: "Total Net Instantaneous Apparent Power (kVA)", Name: "total_net_instantaneous_apparent_power_kva", Kind: KindFloat},
	{Header: "Total Power Factor", Name: "total_power_factor", Kind: KindFloat},
	{Header: "Voltage, L-L, 3p Ave (Volts)", Name: "voltage_l_l_3p_ave_volts", Kind: KindFloat},
	{Header: "Voltage, L-N, 3p Ave (Volts)", Name: "voltage_l_n_3p_ave_volts", Kind: KindFloat},
	{Header: "Current, 3p Ave (Amps)", Name: "current_3p_ave_amps", Kind: KindFloat},
	{Header: "Frequency (Hz)", Name: "frequency_hz", Kind: KindFloat},
	{Header: "Total Real Power Present Demand (kW)", Name: "total_real_power_present_demand_kw", Kind: KindFloat},
	{Header: "Total Reactive Power Present Demand (kVAR)", Name: "total_reactive_power_present_demand_kvar", Kind: KindFloat},
	{Header: "Total Apparent Power Present Demand (kVA)", Name: "total_apparent_power_present_demand_kva", Kind: KindFloat},
	{Header: "Total Real Power Max Demand, Import (kW)", Name: "total_real_power_max_demand_import_kw", Kind: KindFloat},
	{Header: "Total Reactive Power Max Demand, Import (kVAR)", Name: "total_reactive_power_max_demand_import_kvar", Kind: KindFloat},
	{Header: "Total Apparent Power Max Demand, Import (kVA)", Name: "total_apparent_power_max_demand_import_kva", Kind: KindFloat},
	{Header: "Total Real Power Max Demand, Export (kW)", Name: "total_real_power_max_demand_export_kw", Kind: KindFloat},
	{Header: "Total Reactive Power Max Demand, Export (kVAR)", Name: "total_reactive_power_max_demand_export_kvar", Kind: KindFloat},
	{Header: "Total Apparent Power Max Demand, Export (kVA)", Name: "total_apparent_power_max_demand_export_kva", Kind: KindFloat},
	{Header: "Accumulated Real Energy, Phase A, Import (kW)", Name: "accumulated_real_energy_phase_a_import_kw", Kind: KindFloat},
	{Header: "Accumulated Real Energy, Phase B, Import (kW)", Name: "accumulated_real_energy_phase_b_import_kw", Kind: KindFloat},
	{Header: "Accumulated Real Energy, Phase C, Import (kW)", Name: "accumulated_real_energy_phase_c_import_kw", Kind: KindFloat},
	{Header: "Accumulated Real Energy, Phase A, Export (kW)", Name: "accumulated_real_energy_phase_a_export_kw", Kind: KindFloat},
	{Header: "Accumulated Real Energy, Phase B, Export (kW)", Name: "accumulated_real_energy_phase_b_export_kw", Kind: KindFloat},
	{Header: "Accumulated Real Energy, Phase C, Export (kW)", Name: "accumulated_real_energy_phase_c_export_kw", Kind: KindFloat},
	{Header: "Accumulated Q1 Reactive Energy, Phase A, Import (VARh)", Name: "accumulated_q1_reactive_energy_phase_a_import_varh", Kind: KindFloat},
	{Header: "Accumulated Q1 Reactive Energy, Phase B, Import (VARh)", Name: "accumulated_q1_reactive_energy_phase_b_import_varh", Kind: KindFloat},
	{Header: "Accumulated Q1 Reactive Energy, Phase C, Import (VARh)", Name: "accumulated_q1_reactive_energy_phase_c_import_varh", Kind: KindFloat},
	{Header: "Accumulated Q2 Reactive Energy, Phase A, Import (VARh)", Name: "accumulated_q2_reactive_energy_phase_a_import_varh", Kind: KindFloat},
	{Header: "Accumulated Q2 Reactive Energy, Phase B, Import (VARh)", Name: "accumulated_q2_reactive_energy_phase_b_import_varh", Kind: KindFloat},
	{Header: "Accumulated Q2 Reactive Energy, Phase C, Import (VARh)", Name: "accumulated_q2_reactive_energy_phase_c_import_varh", Kind: KindFloat},
	{Header: "Accumulated Q3 Reactive Energy, Phase A, Export (VARh)", Name: "accumulated_q3_reactive_energy_phase_a_export_varh", Kind: KindFloat},
	{Header: "Accumulated Q3 Reactive Energy, Phase B, Export (VARh)", Name: "accumulated_q3_reactive_energy_phase_b_export_varh", Kind: KindFloat},
	{Header: "Accumulated Q3 Reactive Energy, Phase C, Export (VARh)", Name: "accumulated_q3_reactive_energy_phase_c_export_varh", Kind: KindFloat},
	{Header: "Accumulated Q4 Reactive Energy, Phase A, Export (VARh)", Name: "accumulated_q4_reactive_energy_phase_a_export_varh", Kind: KindFloat},
	{Header: "Accumulated Q4 Reactive Energy, Phase B, Export (VARh)", Name: "accumulated_q4_reactive_energy_phase_b_export_varh", Kind: KindFloat},
	{Header: "Accumulated Q4 Reactive Energy, Phase C, Export (VARh)", Name: "accumulated_q4_reactive_energy_phase_c_export_varh", Kind: KindFloat},
	{Header: "Accumulated Apparent Energy, Phase A, Import (VAh)", Name: "accumulated_apparent_energy_phase_a_import_vah", Kind: KindFloat},
	{Header: "Accumulated Apparent Energy, Phase B, Import (VAh)", Name: "accumulated_apparent_energy_phase_b_import_vah", Kind: KindFloat},
	{Header: "Accumulated Apparent Energy, Phase C, Import (VAh)", Name: "accumulated_apparent_energy_phase_c_import_vah", Kind: KindFloat},
	{Header: "Accumulated Apparent Energy, Phase A, Export (VAh)", Name: "accumulated_apparent_energy_phase_a_export_vah", Kind: KindFloat},
	{Header: "Accumulated Apparent Energy, Phase B, Export (VAh)", Name: "accumulated_apparent_energy_phase_b_export_vah", Kind: KindFloat},
	{Header: "Accumulated Apparent Energy, Phase C, Export (VAh)", Name: "accumulated_apparent_energy_phase_c_export_vah", Kind: KindFloat},
	{Header: "Real Power, Phase A (kW)", Name: "real_power_phase_a_kw", Kind: KindFloat},
	{Header: "Real Power, Phase B (kW)", Name: "real_power_phase_b_kw", Kind: KindFloat},
	{Header: "Real Power, Phase C (kW)", Name: "real_power_phase_c_kw", Kind: KindFloat},
	{Header: "Reactive Power, Phase A (kVAR)", Name: "reactive_power_phase_a_kvar", Kind: KindFloat},
	{Header: "Reactive Power, Phase B (kVAR)", Name: "reactive_power_phase_b_kvar", Kind: KindFloat},
	{Header: "Reactive Power, Phase C (kVAR)", Name: "reactive_power_phase_c_kvar", Kind: KindFloat},
	{Header: "Apparent Power, Phase A (kVA)", Name: "apparent_power_phase_a_kva", Kind: KindFloat},
	{Header: "Apparent Power, Phase B (kVA)", Name: "apparent_power_phase_b_kva", Kind: KindFloat},
	{Header: "Apparent Power, Phase C (kVA)", Name: "apparent_power_phase_c_kva", Kind: KindFloat},
	{Header: "Power Factor, Phase A", Name: "power_factor_phase_a", Kind: KindFloat},
	{Header: "Power Factor, Phase B", Name: "power_factor_phase_b", Kind: KindFloat},
	{Header: "Power Factor, Phase C", Name: "power_factor_phase_c", Kind: KindFloat},
	{Header: "Voltage, Phase A-B (Volts)", Name: "voltage_phase_a_b_volts", Kind: KindFloat},
	{Header: "Voltage, Phase B-C (Volts)", Name: "voltage_phase_b_c_volts", Kind: KindFloat},
	{Header: "Voltage, Phase A-C (Volts)", Name: "voltage_phase_a_c_volts", Kind: KindFloat},
	{Header: "Voltage, Phase A-N (Volts)", Name: "voltage_phase_a_n_volts", Kind: KindFloat},
	{Header: "Voltage, Phase B-N (Volts)", Name: "voltage_phase_b_n_volts", Kind: KindFloat},
	{Header: "Voltage, Phase C-N (Volts)", Name: "voltage_phase_c_n_volts", Kind: KindFloat},
	{Header: "Current, Phase A (Amps)", Name: "current_phase_a_amps", Kind: KindFloat},
	{Header: "Current, Phase B (Amps)", Name: "current_phase_b_amps", Kind: KindFloat},
	{Header: "Current, Phase C (Amps)", Name: "current_phase_c_amps", Kind: KindFloat},
}

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(Columns))
	for i, c := range Columns {
		m[c.Header] = i
	}
	return m
}()

// ColumnIndex returns the position in Columns of the column exported under
// header. Surrounding whitespace is ignored.
func ColumnIndex(header string) (int, bool) {
	i, ok := columnIndex[strings.TrimSpace(header)]
	return i, ok
}

// ColumnNames returns the MeterData column names in table order.
func ColumnNames() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Name
	}
	return out
}
