package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireDuration string `json:"acquire_duration"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// Check is one dependency probed by the health endpoint.
type Check struct {
	Name string
	// Required checks turn the whole report unhealthy when they fail;
	// optional ones only degrade it.
	Required bool
	Probe    func(ctx context.Context) (detail interface{}, err error)
}

// PoolCheck probes the Postgres pool.
func PoolCheck(pool *pgxpool.Pool) Check {
	return Check{
		Name:     "database",
		Required: true,
		Probe: func(ctx context.Context) (interface{}, error) {
			err := pool.Ping(ctx)
			return GetPoolStats(pool), err
		},
	}
}

type checkResult struct {
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
	Detail interface{} `json:"detail,omitempty"`
}

// HealthReport is the body of the health endpoint.
type HealthReport struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks"`
}

// Evaluate runs every check with a shared deadline.
func Evaluate(ctx context.Context, checks []Check) (HealthReport, int) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	report := HealthReport{Status: "healthy", Checks: make(map[string]checkResult, len(checks))}
	code := http.StatusOK
	for _, chk := range checks {
		detail, err := chk.Probe(ctx)
		res := checkResult{Status: "healthy", Detail: detail}
		if err != nil {
			res.Status = "unhealthy"
			res.Error = err.Error()
			if chk.Required {
				report.Status = "unhealthy"
				code = http.StatusServiceUnavailable
			} else if report.Status == "healthy" {
				report.Status = "degraded"
			}
		}
		report.Checks[chk.Name] = res
	}
	return report, code
}

// HealthHandler reports the state of the gateway's dependencies.
func HealthHandler(checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		report, code := Evaluate(c.Request().Context(), checks)
		return c.JSON(code, report)
	}
}
