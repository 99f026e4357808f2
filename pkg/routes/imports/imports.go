package imports

import (
	"context"
	"io"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/importer"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Register registers import routes
func Register(g *echo.Group) {
	g.POST("", Upload)
	g.POST("/rows", UploadRows)
}

// ImportResponse reports a batch outcome plus the index state after it
type ImportResponse struct {
	Result *models.BatchResult `json:"result"`
	Index  *models.IndexState  `json:"index"`
}

// Upload accepts a multipart export file (.xlsx or .csv), parses it, and runs
// every row through the upsert pipeline
func Upload(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "imports_handler.Upload")
	defer span.End()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "missing file upload")
	}

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get config")
	}
	if fileHeader.Size > cfg.ImportMaxFileBytes {
		return httperror.NewHTTPError(http.StatusRequestEntityTooLarge, "import file too large")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "failed to open upload")
	}
	defer file.Close()

	ctx, parser, err := ectoinject.GetContext[*importer.Parser](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get parser")
	}

	rows, err := parser.Parse(fileHeader.Filename, io.LimitReader(file, cfg.ImportMaxFileBytes))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return runBatch(c, ctx, rows)
}

func runBatch(c echo.Context, ctx context.Context, rows []models.UpsertContactRequest) error {
	ctx, engine, err := ectoinject.GetContext[*pipeline.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get upsert engine")
	}

	result := engine.ImportBatch(ctx, rows)

	// Bulk imports can leave transient duplicates; the guardian heals them
	// before the next batch relies on the index.
	ctx, guardian, err := ectoinject.GetContext[*merging.Guardian](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get guardian")
	}
	index := guardian.EnsureIndex(ctx)

	return c.JSON(http.StatusOK, ImportResponse{Result: result, Index: index})
}

// UploadRows accepts pre-parsed rows as JSON, for clients that do their own
// file handling
func UploadRows(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "imports_handler.UploadRows")
	defer span.End()

	var rows []models.UpsertContactRequest
	if err := c.Bind(&rows); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(rows) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "no rows to import")
	}

	return runBatch(c, ctx, rows)
}
