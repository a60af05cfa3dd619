package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"plazadatos/internal/export"

	"github.com/gin-gonic/gin"
)

const exportRowLimit = 10000

// capRows keeps at most n rows.
func capRows[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

// badDataset marks client mistakes in an export request.
type badDataset struct{ msg string }

func (e badDataset) Error() string { return e.msg }

func (h *Handler) exportDataset(ctx context.Context, dataset string, surveyID int) (export.Table, interface{}, string, error) {
	switch dataset {
	case "participaciones":
		rows, err := h.store.RecentParticipations(ctx, exportRowLimit)
		return export.ParticipationsTable(rows), rows, dataset, err
	case "encuestas":
		rows, err := h.store.SurveysSummary(ctx)
		rows = capRows(rows, exportRowLimit)
		return export.SurveysTable(rows), rows, dataset, err
	case "canjes":
		rows, err := h.store.ListRedemptions(ctx, "")
		rows = capRows(rows, exportRowLimit)
		return export.RedemptionsTable(rows), rows, dataset, err
	case "respuestas":
		if surveyID <= 0 {
			return export.Table{}, nil, "", badDataset{"id_encuesta es obligatorio para exportar respuestas"}
		}
		title, err := h.store.SurveyTitle(ctx, surveyID)
		if err != nil {
			return export.Table{}, nil, "", err
		}
		rows, err := h.store.DetailedResponses(ctx, surveyID)
		rows = capRows(rows, exportRowLimit)
		return export.ResponsesTable(title, rows), rows, "respuestas_" + title, err
	}
	return export.Table{}, nil, "", badDataset{"Conjunto de datos desconocido: " + dataset}
}

func (h *Handler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", "json"))
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	dataset := c.Param("dataset")
	table, raw, base, err := h.exportDataset(c.Request.Context(), dataset, queryInt(c, "id_encuesta", 0))
	if bad, ok := err.(badDataset); ok {
		detail(c, http.StatusBadRequest, bad.msg)
		return
	}
	if err != nil {
		h.fail(c, err, "export "+dataset)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, table, raw); err != nil {
		h.fail(c, err, "render export")
		return
	}
	name := export.Filename(base, format, h.now())
	h.log.Infof("user %d exported %s as %s (%d rows)", currentUser(c).ID, dataset, format, len(table.Rows))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
