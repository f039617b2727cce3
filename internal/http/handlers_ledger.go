package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"firefly/internal/core"
	"firefly/internal/csvimport"
	"firefly/internal/report"
)

type createAccountRequest struct {
	Name string `json:"name"`
}

type createCategoryRequest struct {
	Name      string `json:"name"`
	IsExpense bool   `json:"isExpense"`
}

type createTagRequest struct {
	Name string `json:"name"`
}

type createTransactionRequest struct {
	AccountID  int64           `json:"accountId"`
	CategoryID int64           `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	Date       int64           `json:"date"`
	TagIDs     []int64         `json:"tagIds"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.backend.ListAccounts(r.Context())
	if err != nil {
		s.fail(w, r, "listAccounts", err)
		return
	}
	writeJSON(w, http.StatusOK, s.accounts(accounts))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "getAccount", err)
		return
	}
	accounts, err := s.backend.ListAccounts(r.Context())
	if err != nil {
		s.fail(w, r, "getAccount", err)
		return
	}
	for _, a := range accounts {
		if a.ID == id {
			writeJSON(w, http.StatusOK, s.accounts([]core.Account{a})[0])
			return
		}
	}
	s.fail(w, r, "getAccount", fmt.Errorf("account %d: %w", id, core.ErrNotFound))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "createAccount", err)
		return
	}
	a, err := s.ledger.CreateAccount(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		s.fail(w, r, "createAccount", err)
		return
	}
	writeJSON(w, http.StatusCreated, s.accounts([]core.Account{a})[0])
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.backend.ListCategories(r.Context())
	if err != nil {
		s.fail(w, r, "listCategories", err)
		return
	}
	writeJSON(w, http.StatusOK, categories(cats))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "getCategory", err)
		return
	}
	cats, err := s.backend.ListCategories(r.Context())
	if err != nil {
		s.fail(w, r, "getCategory", err)
		return
	}
	if c, ok := core.CategoryIndex(cats)[id]; ok {
		writeJSON(w, http.StatusOK, categories([]core.Category{c})[0])
		return
	}
	s.fail(w, r, "getCategory", fmt.Errorf("category %d: %w", id, core.ErrNotFound))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "createCategory", err)
		return
	}
	c, err := s.ledger.CreateCategory(r.Context(), sanitizeInput(req.Name), req.IsExpense)
	if err != nil {
		s.fail(w, r, "createCategory", err)
		return
	}
	writeJSON(w, http.StatusCreated, categories([]core.Category{c})[0])
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	list, err := s.backend.ListTags(r.Context())
	if err != nil {
		s.fail(w, r, "listTags", err)
		return
	}
	writeJSON(w, http.StatusOK, tags(list))
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "createTag", err)
		return
	}
	t, err := s.ledger.CreateTag(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		s.fail(w, r, "createTag", err)
		return
	}
	writeJSON(w, http.StatusCreated, tags([]core.Tag{t})[0])
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.backend.DeleteTag(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, "deleteTag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListTransactions lists transactions, optionally restricted to a date
// range (start, end in ms) and to an account, category or tag.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := queryInt64(q, "start")
	if err != nil {
		s.fail(w, r, "listTransactions", err)
		return
	}
	end, err := queryInt64(q, "end")
	if err != nil {
		s.fail(w, r, "listTransactions", err)
		return
	}
	filters, err := transactionFilters(q.Get("accountId"), q.Get("categoryId"), q.Get("tagId"))
	if err != nil {
		s.fail(w, r, "listTransactions", err)
		return
	}

	txs, err := s.listTransactions(r.Context(), start, end)
	if err != nil {
		s.fail(w, r, "listTransactions", err)
		return
	}
	writeJSON(w, http.StatusOK, s.transactions(filters.Apply(txs)))
}

func (s *Server) listTransactions(ctx context.Context, start, end int64) ([]core.Transaction, error) {
	if start == 0 && end == 0 {
		return s.backend.ListTransactions(ctx)
	}
	if end == 0 {
		end = math.MaxInt64
	}
	if end < start {
		return nil, core.ErrInvalidRange
	}
	return s.backend.ListTransactionsByDateRange(ctx, start, end)
}

// transactionFilters reuses the saved-report filter rules for query strings.
func transactionFilters(account, category, tag string) (report.Filters, error) {
	var f report.Filters
	parse := func(name, raw string) (*report.ID, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		var id report.ID
		if err := id.UnmarshalJSON([]byte(raw)); err != nil {
			return nil, badRequest("invalid %s %q", name, raw)
		}
		return &id, nil
	}
	var err error
	if f.AccountID, err = parse("accountId", account); err != nil {
		return f, err
	}
	if f.CategoryID, err = parse("categoryId", category); err != nil {
		return f, err
	}
	tagID, err := parse("tagId", tag)
	if err != nil {
		return f, err
	}
	if tagID != nil {
		f.TagIDs = []report.ID{*tagID}
	}
	return f, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "createTransaction", err)
		return
	}
	amount, err := core.MoneyFromDecimal(req.Amount)
	if err != nil {
		s.fail(w, r, "createTransaction", err)
		return
	}
	tx, err := s.ledger.CreateTransaction(r.Context(), core.NewTransaction{
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Amount:     amount,
		Date:       req.Date,
		TagIDs:     req.TagIDs,
	})
	if err != nil {
		s.fail(w, r, "createTransaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, s.transaction(tx))
}

// handleImportTransactions accepts the CSV either as the raw body or as the
// "file" field of a multipart form. Row problems are reported in the result,
// not as an error status.
func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	createTags, err := queryBool(r.URL.Query(), "createTags")
	if err != nil {
		s.fail(w, r, "importTransactions", err)
		return
	}

	body, err := importBody(w, r)
	if err != nil {
		s.fail(w, r, "importTransactions", err)
		return
	}
	defer body.Close()

	res, err := s.imports.Import(r.Context(), body, csvimport.Options{CreateMissingTags: createTags})
	if err != nil {
		s.fail(w, r, "importTransactions", err)
		return
	}
	status := http.StatusOK
	if res.Created > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func importBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		return nil, &requestError{msg: "invalid multipart form", err: err}
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, &requestError{msg: `missing "file" field`, err: err}
	}
	return f, nil
}

func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.exports.WriteCSV(r.Context(), &buf)
	if err != nil {
		s.fail(w, r, "exportTransactions", err)
		return
	}
	name := fmt.Sprintf("transactions-%s.csv", s.now().In(s.format.Location).Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("X-Total-Count", fmt.Sprint(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	res, err := s.exports.ExportToSheets(r.Context())
	if err != nil {
		s.fail(w, r, "exportSheets", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
