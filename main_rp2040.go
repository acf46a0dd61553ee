//go:build rp2040

package main

import "time"

const bootDelay = 2 * time.Second
