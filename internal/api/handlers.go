package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/internal/runner"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
	"github.com/mohamedkhairy/session-range-stats/internal/storage"
	"github.com/mohamedkhairy/session-range-stats/internal/summary"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

// Recomputer recomputes the tables of one symbol
type Recomputer interface {
	Run(ctx context.Context, symbol string) (*orb.Result, error)
}

// TableHandler serves computed session range tables
type TableHandler struct {
	tables         storage.TableStorage
	recomputer     Recomputer
	symbols        []string
	openingMinutes int
	locations      map[session.ID]*time.Location
}

// NewTableHandler creates a new table handler. openingMinutes is used when a
// request does not name one; locations gives each session's clock for
// reported times.
func NewTableHandler(tables storage.TableStorage, recomputer Recomputer, symbols []string, openingMinutes int, locations map[session.ID]*time.Location) *TableHandler {
	return &TableHandler{
		tables:         tables,
		recomputer:     recomputer,
		symbols:        symbols,
		openingMinutes: openingMinutes,
		locations:      locations,
	}
}

// ListTables handles GET /api/v1/tables
func (h *TableHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	infos, err := h.tables.ListTables(r.Context())
	if err != nil {
		logger.Error("Failed to list tables", logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list tables")
		return
	}

	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	filtered := make([]storage.TableInfo, 0, len(infos))
	for _, info := range infos {
		if symbol != "" && info.Symbol != symbol {
			continue
		}
		filtered = append(filtered, info)
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"tables": filtered,
		"count":  len(filtered),
	})
}

// GetTable handles GET /api/v1/tables/{symbol}/{session}.
// Query parameters accepted by summary.ParseFilter narrow the records.
func (h *TableHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	table, filter, ok := h.loadTable(w, r)
	if !ok {
		return
	}

	records := filter.Apply(table.Records)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":          table.Symbol,
		"session":         table.Session,
		"opening_minutes": table.OpeningMinutes,
		"records":         records,
		"count":           len(records),
	})
}

// GetDistribution handles GET /api/v1/tables/{symbol}/{session}/distribution
func (h *TableHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	table, filter, ok := h.loadTable(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, summary.Build(table, filter, h.locations[table.Session]))
}

// Recompute handles POST /api/v1/recompute/{symbol}
func (h *TableHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if !h.knownSymbol(symbol) {
		respondWithError(w, http.StatusNotFound, "Symbol not found")
		return
	}

	result, err := h.recomputer.Run(r.Context(), symbol)
	if errors.Is(err, runner.ErrNoBars) {
		respondWithError(w, http.StatusNotFound, "No bars for symbol")
		return
	}
	if err != nil {
		logger.Error("Recompute failed",
			logger.String("symbol", symbol),
			logger.String("user_id", UserID(r.Context())),
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to recompute tables")
		return
	}

	summaries := make([]map[string]interface{}, 0, len(result.Tables))
	for _, t := range result.Tables {
		summaries = append(summaries, map[string]interface{}{
			"session":         t.Session,
			"opening_minutes": t.OpeningMinutes,
			"rows":            len(t.Records),
		})
	}

	logger.Info("Tables recomputed",
		logger.String("symbol", symbol),
		logger.String("user_id", UserID(r.Context())),
		logger.Int("tables", len(result.Tables)),
	)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"tables": summaries,
	})
}

// ListSymbols handles GET /api/v1/symbols
func (h *TableHandler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": h.symbols,
		"count":   len(h.symbols),
	})
}

func (h *TableHandler) knownSymbol(symbol string) bool {
	for _, s := range h.symbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

// loadTable resolves the table and filter of a request, writing the error
// response itself when it fails
func (h *TableHandler) loadTable(w http.ResponseWriter, r *http.Request) (*orb.Table, summary.Filter, bool) {
	vars := mux.Vars(r)
	query := r.URL.Query()

	minutes := h.openingMinutes
	if v := query.Get("minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid minutes parameter")
			return nil, summary.Filter{}, false
		}
		minutes = n
	}

	filter, err := summary.ParseFilter(query)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return nil, summary.Filter{}, false
	}

	key := storage.TableKey{
		Symbol:         strings.ToUpper(vars["symbol"]),
		Session:        session.ID(strings.ToLower(vars["session"])),
		OpeningMinutes: minutes,
	}
	table, err := h.tables.GetTable(r.Context(), key)
	if errors.Is(err, storage.ErrTableNotFound) {
		respondWithError(w, http.StatusNotFound, "Table not found")
		return nil, summary.Filter{}, false
	}
	if err != nil {
		logger.Error("Failed to get table",
			logger.String("symbol", key.Symbol),
			logger.String("session", string(key.Session)),
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve table")
		return nil, summary.Filter{}, false
	}
	return table, filter, true
}
