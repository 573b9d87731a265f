package httpapi

import (
	"net/http"

	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/category"
	"gitlab.com/yelinaung/expense-tracker/internal/ledger"
)

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type suggestRequest struct {
	Label string `json:"label"`
}

func (h *handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	list, err := h.deps.Categories.ListForOwner(r.Context(), p.Owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p := principalFrom(r.Context())
	c, err := h.deps.Categories.Create(r.Context(), p.Owner, in.Name, in.Color)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p := principalFrom(r.Context())
	c, found, err := h.deps.Categories.Update(r.Context(), p.Owner, r.PathValue("id"), category.Patch(in))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, apperr.NotFound("category not found"))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	deleted, err := h.deps.Categories.Delete(r.Context(), p.Owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, apperr.NotFound("category not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listExpenses(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	writeJSON(w, http.StatusOK, h.deps.Expenses.ListForOwner(p.Owner))
}

func (h *handlers) addExpense(w http.ResponseWriter, r *http.Request) {
	var in ledger.AddInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p := principalFrom(r.Context())
	e, err := h.deps.Expenses.Add(r.Context(), p.Owner, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *handlers) deleteExpense(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	deleted, err := h.deps.Expenses.Delete(r.Context(), p.Owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, apperr.NotFound("expense not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) suggestCategory(w http.ResponseWriter, r *http.Request) {
	if h.deps.Suggester == nil {
		writeError(w, r, apperr.NotFound("category suggestions are not configured"))
		return
	}

	var in suggestRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p := principalFrom(r.Context())
	names, err := h.deps.Categories.Names(r.Context(), p.Owner)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.deps.Suggester.SuggestCategory(r.Context(), in.Label, names)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
