// Package control provides the closed-loop building blocks shared by every
// subsystem controller:
//
//   - [PID]: proportional-integral-derivative calculator with output
//     clamping, anti-windup and an optional continuous (wraparound) input
//   - [AlphaFilter]: first-order low-pass used to limit drive acceleration
//   - [MovingAverage]: windowed mean used to smooth noisy sensor readings
//
// # Usage
//
//	pid := control.NewPID(control.Gains{P: 0.02, OutputMin: -0.5, OutputMax: 0.5})
//	pid.SetContinuous(0, 360)
//	pid.SetSetpoint(90)
//	turn := pid.Calculate(heading) // once per loop tick
//
// None of the types here lock. A PID belongs to exactly one controller and the
// controller serializes access to it.
package control
