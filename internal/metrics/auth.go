package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth flow Prometheus metrics. Standalone package to avoid import cycles
// between the service layer and HTTP packages.

var (
	Registrations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authkit_registrations_total",
		Help: "Usuarios registrados",
	})

	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_logins_total",
		Help: "Intentos de login por resultado",
	}, []string{"result"}) // ok | bad_credentials | error

	RefreshRotations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authkit_refresh_rotations_total",
		Help: "Rotaciones de refresh token exitosas",
	})

	RefreshReuseDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authkit_refresh_reuse_detected_total",
		Help: "Refresh tokens rechazados por jti desconocido (posible replay)",
	})

	OTPIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_otp_issued_total",
		Help: "Códigos OTP emitidos por flujo",
	}, []string{"flow"}) // verify | reset

	OTPConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_otp_consumed_total",
		Help: "Códigos OTP consumidos por flujo y resultado",
	}, []string{"flow", "result"}) // ok | invalid | expired
)

// Register registra todas las métricas en reg (o en el default si es nil).
// Tolera AlreadyRegistered para que los tests puedan llamar varias veces.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cs := []prometheus.Collector{
		Registrations, Logins, RefreshRotations, RefreshReuseDetected,
		OTPIssued, OTPConsumed,
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// Handler expone /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
