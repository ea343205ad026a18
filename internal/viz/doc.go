// Package viz draws a running heater simulation in the terminal.
//
// The live view is a Bubble Tea program that advances the simulation on
// every frame and plots temperature against target.
//
// # Key Bindings
//
//	Space    - Pause/Resume simulation
//	Up/Down  - Raise/lower the target by 1 °C
//	Tab      - Select the next controller parameter
//	+/-      - Adjust the selected parameter
//	M        - Toggle PID derivative mode
//	R        - Reset controller and plant
//	Q        - Quit
package viz
