//go:build !rp2040

package main

const bootDelay = 0
