//go:build windows
// +build windows

package main

import (
	log "github.com/sirupsen/logrus"
)

// Deamonize not supported in windows
func Deamonize(proc func()) {
	log.Warn("daemon mode is not supported in windows")
	proc()
}
