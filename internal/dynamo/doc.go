// Package dynamo holds the primitives for the simulated plant's ordinary
// differential equations: a state vector, a control vector, the system that
// maps them to a derivative, and the integrator that advances it.
//
//	dx/dt = f(x, u, t)
//
// The robot's control code never sees these types; it talks to hal ports
// that the plant keeps in sync with the integrated state.
package dynamo
