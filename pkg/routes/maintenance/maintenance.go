package maintenance

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Register registers maintenance routes
func Register(g *echo.Group) {
	g.POST("/sweep", Sweep)
	g.POST("/ensure-index", EnsureIndex)
}

// Sweep runs a duplicate sweep. Safe to call when no duplicates exist; it
// reports zero removals.
func Sweep(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "maintenance_handler.Sweep")
	defer span.End()

	ctx, sweeper, err := ectoinject.GetContext[*merging.Sweeper](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get sweeper")
	}

	result, err := sweeper.Sweep(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// EnsureIndex re-establishes the dedupe key unique index, sweeping first if
// duplicates block it
func EnsureIndex(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "maintenance_handler.EnsureIndex")
	defer span.End()

	ctx, guardian, err := ectoinject.GetContext[*merging.Guardian](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get guardian")
	}

	return c.JSON(http.StatusOK, guardian.EnsureIndex(ctx))
}
