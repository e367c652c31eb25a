package solver

import (
	"math"

	"github.com/kdelattre/orbitflow/internal/phase"
)

// Dormand-Prince 5(4) coefficients
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// Dopri5 is the adaptive Dormand-Prince 5(4) pair with a standard
// safety-factor step-size controller.
type Dopri5 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewDopri5() Dopri5 {
	return Dopri5{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (Dopri5) Name() string { return "dopri5" }

// Step satisfies the fixed-step Algorithm contract by taking a single
// attempt at the requested size without the controller.
func (d Dopri5) Step(f phase.Field, p phase.Params, x phase.State, t, dt float64) phase.State {
	newX, _ := d.attempt(f, p, x, t, dt)
	return newX
}

// StepAdaptive attempts steps until the embedded error estimate passes the
// tolerance, shrinking dt on rejection. It fails with ErrStepTooSmall once
// dt would drop below opts.MinDt, and with ErrUnstable when the error
// estimate is NaN.
func (d Dopri5) StepAdaptive(f phase.Field, p phase.Params, x phase.State, t, dt float64, opts Options) (phase.State, float64, float64, error) {
	for {
		newX, errRatio := d.attemptScaled(f, p, x, t, dt, opts.AbsTol, opts.RelTol)

		// A NaN estimate fails both the accept and the reject comparison,
		// and no step size can recover from it.
		if math.IsNaN(errRatio) {
			return nil, 0, dt, ErrUnstable
		}

		if errRatio <= 1 {
			var dtNext float64
			if errRatio > 0 {
				scale := math.Min(d.maxScale, d.safety*math.Pow(errRatio, -0.2))
				dtNext = dt * scale
			} else {
				dtNext = dt * d.maxScale
			}
			return newX, dt, dtNext, nil
		}

		scale := math.Max(d.minScale, d.safety*math.Pow(errRatio, -0.25))
		dt *= scale
		if dt < opts.MinDt {
			return nil, 0, dt, ErrStepTooSmall
		}
	}
}

func (d Dopri5) attempt(f phase.Field, p phase.Params, x phase.State, t, dt float64) (phase.State, float64) {
	return d.attemptScaled(f, p, x, t, dt, 1e-8, 1e-8)
}

// attemptScaled performs one 5(4) step and returns the candidate state with
// the max component-wise error over tolerance.
func (d Dopri5) attemptScaled(f phase.Field, p phase.Params, x phase.State, t, dt, atol, rtol float64) (phase.State, float64) {
	n := len(x)

	k1 := f.Derive(t, x, p)

	x2 := make(phase.State, n)
	for i := 0; i < n; i++ {
		x2[i] = x[i] + dt*b21*k1[i]
	}
	k2 := f.Derive(t+a2*dt, x2, p)

	x3 := make(phase.State, n)
	for i := 0; i < n; i++ {
		x3[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := f.Derive(t+a3*dt, x3, p)

	x4 := make(phase.State, n)
	for i := 0; i < n; i++ {
		x4[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := f.Derive(t+a4*dt, x4, p)

	x5 := make(phase.State, n)
	for i := 0; i < n; i++ {
		x5[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := f.Derive(t+a5*dt, x5, p)

	x6 := make(phase.State, n)
	for i := 0; i < n; i++ {
		x6[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := f.Derive(t+dt, x6, p)

	xNew := make(phase.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := f.Derive(t+dt, xNew, p)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := atol + rtol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	return xNew, errMax
}
