// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/defaults.go
// Summary: Default values for the waylight system configuration.

package config

func applySystemDefaults(cfg Config) {
	if cfg == nil {
		return
	}
	cfg.RegisterDefaults("window", Section{
		"default_width":  800.0,
		"default_height": 600.0,
		"min_width":      1.0,
		"min_height":     1.0,
	})
	cfg.RegisterDefaults("engine", Section{
		"action_high_water": 100,
		"frame_interval_ms": 16,
	})
	cfg.RegisterDefaults("sim", Section{
		"mouse_enabled": true,
		"title_bars":    true,
		"output_name":   "sim-0",
		"scale_factor":  1.0,
	})
}
