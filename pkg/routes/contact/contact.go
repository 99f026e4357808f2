package contact

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	contactrepo "github.com/Ramsey-B/clover/internal/repositories/contact"
	"github.com/Ramsey-B/clover/internal/repositories/note"
	"github.com/Ramsey-B/clover/internal/repositories/saleline"
	"github.com/Ramsey-B/clover/internal/repositories/statuschange"
	"github.com/Ramsey-B/clover/pkg/identity"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var validate = validator.New()

// Register registers contact routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Upsert)
	g.GET("/dedupe-key", PreviewDedupeKey)
	g.GET("/:id", Get)
	g.GET("/:id/notes", ListNotes)
	g.POST("/:id/notes", CreateNote)
	g.GET("/:id/status-history", ListStatusHistory)
	g.GET("/:id/sale-lines", ListSaleLines)
	g.POST("/:id/sale-lines", CreateSaleLine)
}

// List returns a page of contacts
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.List")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}

	ctx, repo, err := ectoinject.GetContext[*contactrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ContactListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Upsert processes one contact row through the dedup pipeline. Used by both
// the manual-add form and single-row API clients.
func Upsert(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.Upsert")
	defer span.End()

	var req models.UpsertContactRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, engine, err := ectoinject.GetContext[*pipeline.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get upsert engine")
	}

	resp, err := engine.Upsert(ctx, req)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, resp)
}

// PreviewDedupeKey computes the key a set of identity fields would produce,
// so entry forms can warn about collisions before inserting
func PreviewDedupeKey(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "contact_handler.PreviewDedupeKey")
	defer span.End()

	key := identity.ComputeDedupeKey(
		c.QueryParam("first_name"),
		c.QueryParam("last_name"),
		c.QueryParam("company"),
		c.QueryParam("email"),
		c.QueryParam("profile_url"),
	)

	return c.JSON(http.StatusOK, map[string]string{"dedupe_key": key})
}

// Get returns a single contact by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.Get")
	defer span.End()

	id, err := contactID(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*contactrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	contact, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, contact)
}

// ListNotes returns a contact's notes
func ListNotes(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.ListNotes")
	defer span.End()

	id, err := contactID(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*note.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	notes, err := repo.ListByContact(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, notes)
}

// CreateNote adds a note to a contact. The body is sanitized the same way
// imported notes are, and identical bodies are not duplicated.
func CreateNote(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.CreateNote")
	defer span.End()

	id, err := contactID(c)
	if err != nil {
		return err
	}

	var req models.CreateNoteRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	body := pipeline.SanitizeNote(req.Body)
	if body == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "note body is empty after sanitization")
	}

	ctx, contacts, err := ectoinject.GetContext[*contactrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err = contacts.Get(ctx, id); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*note.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	exists, err := repo.ExistsWithBody(ctx, id, body)
	if err != nil {
		return err
	}
	if exists {
		return httperror.NewHTTPError(http.StatusConflict, "identical note already exists for this contact")
	}

	created, err := repo.Create(ctx, &models.Note{ContactID: id, Body: body})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// ListStatusHistory returns a contact's pipeline transitions
func ListStatusHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.ListStatusHistory")
	defer span.End()

	id, err := contactID(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*statuschange.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	changes, err := repo.ListByContact(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, changes)
}

// ListSaleLines returns a contact's sale lines
func ListSaleLines(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.ListSaleLines")
	defer span.End()

	id, err := contactID(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*saleline.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	lines, err := repo.ListByContact(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, lines)
}

// CreateSaleLine adds a product line to a contact's deal
func CreateSaleLine(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.CreateSaleLine")
	defer span.End()

	id, err := contactID(c)
	if err != nil {
		return err
	}

	var req models.CreateSaleLineRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !models.IsValidProduct(req.Product) {
		return httperror.NewHTTPError(http.StatusBadRequest, "unknown product")
	}

	ctx, contacts, err := ectoinject.GetContext[*contactrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err = contacts.Get(ctx, id); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*saleline.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	created, err := repo.Create(ctx, &models.SaleLine{
		ContactID:      id,
		Product:        req.Product,
		Quantity:       req.Quantity,
		UnitPriceMinor: req.UnitPriceMinor,
		Currency:       req.Currency,
		SaleDate:       req.SaleDate,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

func contactID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, "invalid contact id")
	}
	return id, nil
}
