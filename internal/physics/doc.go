// Package physics provides the plasma filament force model.
//
// [Filament] implements [dynamo.System] for the state (z, v_z, Ip, r, v_r):
//
//	F_mag_z  = gamma_z² · z · Ip/Ip_nominal
//	F_eddy_z = -k_eddy_z · z · exp(-|z|/λ)
//	F_cpl_z  = -k_coupling · gamma_r² · r · z        (2D only)
//	a_z      = (F_mag_z + F_eddy_z + F_cpl_z + B_z·u_z) / M_z
//	a_r      = (gamma_r²·r - k_eddy_r·r·exp(-|r|/λ) + B_r·u_r) / M_r   (2D only)
//	dIp/dt   = -Ip_cq_rate when |z| > z_cq_trigger
//
// The force helpers are exported so reduced prediction models (see the
// control package) share the exact same vertical force law.
package physics
