// Package config provides configuration management for pagelift.
package config
