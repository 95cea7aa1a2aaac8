package clinic

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const ClinicIDKey contextKey = "clinic_id"

// HeaderClinicID selects the clinic when the token does not carry one.
const HeaderClinicID = "X-Clinic-ID"

// Middleware resolves the clinic a request acts on and stores it in the
// request context. defaultClinic may be uuid.Nil, in which case requests
// without a clinic are rejected.
func Middleware(defaultClinic uuid.UUID) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractClinicID(c)
			clinicID := defaultClinic
			if raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid clinic identifier")
				}
				clinicID = id
			}
			if clinicID == uuid.Nil {
				return echo.NewHTTPError(http.StatusBadRequest, "clinic identifier is required")
			}

			ctx := context.WithValue(c.Request().Context(), ClinicIDKey, clinicID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("clinic_id", clinicID.String())

			return next(c)
		}
	}
}

func extractClinicID(c echo.Context) string {
	// 1. JWT claim (set by auth middleware)
	if cid, ok := c.Get("jwt_clinic_id").(string); ok && cid != "" {
		return cid
	}

	// 2. X-Clinic-ID header
	if cid := c.Request().Header.Get(HeaderClinicID); cid != "" {
		return cid
	}

	// 3. Query parameter
	return c.QueryParam("clinic_id")
}

// FromContext returns the clinic resolved by Middleware, or uuid.Nil.
func FromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ClinicIDKey).(uuid.UUID)
	return id
}

// WithClinic returns a context carrying clinicID, for callers outside HTTP.
func WithClinic(ctx context.Context, clinicID uuid.UUID) context.Context {
	return context.WithValue(ctx, ClinicIDKey, clinicID)
}
