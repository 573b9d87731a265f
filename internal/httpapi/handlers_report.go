package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/report"
)

func (h *handlers) parseFilter(r *http.Request) (report.Filter, error) {
	q := r.URL.Query()
	f := report.Filter{Category: strings.TrimSpace(q.Get("category"))}

	var err error
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		if f.Year, err = strconv.Atoi(v); err != nil {
			return report.Filter{}, apperr.Validation("year must be a number")
		}
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		if f.Month, err = strconv.Atoi(v); err != nil {
			return report.Filter{}, apperr.Validation("month must be a number")
		}
	}
	if err := f.Validate(); err != nil {
		return report.Filter{}, err
	}
	return f.Resolve(h.now()), nil
}

func (h *handlers) getReport(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := principalFrom(r.Context())
	res, err := h.deps.Reports.Build(r.Context(), p.Owner, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) exportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := principalFrom(r.Context())
	list, err := h.deps.Reports.Expenses(p.Owner, f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, list); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(f, "csv")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *handlers) chartPNG(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := principalFrom(r.Context())
	res, err := h.deps.Reports.Build(r.Context(), p.Owner, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(res.Rows) == 0 {
		writeError(w, r, apperr.NotFound("no expenses to chart"))
		return
	}

	png, err := report.RenderPieChart(res, report.Title(f))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", report.Filename(f, "png")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
