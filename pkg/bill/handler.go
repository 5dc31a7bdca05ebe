package bill

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/billsforynab/bills/internal/rest"
	"github.com/billsforynab/bills/pkg/ynab"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// BillDTO is the request body for creating and editing a bill. Responses return the stored Bill,
// whose fields keep YNAB's names.
type BillDTO struct {
	AccountID  string         `json:"accountId"`
	PayeeName  string         `json:"payeeName"`
	Frequency  ynab.Frequency `json:"frequency"`
	Amount     int64          `json:"amount"`
	Memo       string         `json:"memo"`
	Date       string         `json:"date"`
	CategoryID string         `json:"categoryId"`
}

func DTOToDraft(dto BillDTO) ynab.ScheduledTransactionDraft {
	return ynab.ScheduledTransactionDraft{
		AccountID:  dto.AccountID,
		PayeeName:  dto.PayeeName,
		Frequency:  dto.Frequency,
		Amount:     dto.Amount,
		Memo:       dto.Memo,
		Date:       dto.Date,
		CategoryID: dto.CategoryID,
	}
}

type Handler struct {
	billService Service
}

func NewHandler(billService Service) *Handler {
	return &Handler{billService: billService}
}

// List returns the bills of a budget. With from and to (YYYY-MM-DD) only bills due in [from, to)
// are returned, soonest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	budgetID := mux.Vars(r)["budgetId"]
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	var (
		bills []Bill
		err   error
	)
	switch {
	case from == "" && to == "":
		bills, err = h.billService.List(r.Context(), budgetID)
	case from == "" || to == "":
		rest.WriteError(w, http.StatusBadRequest, "Both from and to are required", "expected YYYY-MM-DD dates")
		return
	default:
		bills, err = h.billService.ListDue(r.Context(), budgetID, from, to)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, bills)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.billService.Summary(r.Context(), mux.Vars(r)["budgetId"])
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	budgetID := mux.Vars(r)["budgetId"]
	log.Debugf("creating bill in budget %s", budgetID)

	var dto BillDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	created, err := h.billService.Create(r.Context(), budgetID, DTOToDraft(dto))
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var dto BillDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	updated, err := h.billService.Update(r.Context(), vars["budgetId"], vars["billId"], DTOToDraft(dto))
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, updated)
}

// Publish retries sending a draft to YNAB.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	published, err := h.billService.Publish(r.Context(), vars["budgetId"], vars["billId"])
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, published)
}

func (h *Handler) SetExcluded(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var body struct {
		Excluded *bool `json:"excluded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if body.Excluded == nil {
		rest.WriteError(w, http.StatusBadRequest, "excluded is required", "")
		return
	}

	updated, err := h.billService.SetExcluded(r.Context(), vars["budgetId"], vars["billId"], *body.Excluded)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.billService.Delete(r.Context(), vars["budgetId"], vars["billId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidBill) {
		rest.WriteError(w, http.StatusBadRequest, "Invalid bill", err.Error())
		return
	}
	rest.WriteServiceError(w, err)
}
