// Package board binds the power plane to real or simulated hardware. The
// rp2040 build drives the Pico pins; every other build runs on hwsim with
// the console on stdin/stdout.
package board

// Fixed GPIO assignment on the rp2040 board. The simulator uses the same
// numbers for its pins so logs line up.
const (
	pinConsoleTX = 0
	pinConsoleRX = 1 // also the standby wake line

	pinSync5VA = 2 // PWM1A
	pinSync5VB = 3 // PWM1B
	pinSync3VA = 4 // PWM2A
	pinSync3VB = 5 // PWM2B

	pinPG5VA = 6
	pinPG5VB = 7
	pinPG3VA = 8
	pinPG3VB = 9

	pinENN12 = 10
	pinPGN12 = 11

	pinLEDA = 13
	pinLEDB = 14
	pinLEDC = 15

	pinBusSDA = 26 // I2C1
	pinBusSCL = 27
)

var (
	syncPins = [4]int{pinSync5VA, pinSync5VB, pinSync3VA, pinSync3VB}
	pgPins   = [4]int{pinPG5VA, pinPG5VB, pinPG3VA, pinPG3VB}
	ledPins  = [3]int{pinLEDA, pinLEDB, pinLEDC}
)
