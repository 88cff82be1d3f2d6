// SPDX-License-Identifier: MPL-2.0

// Package config loads packgen settings from CUE files validated against an
// embedded schema, layered with PACKGEN_* environment variables through viper.
package config
