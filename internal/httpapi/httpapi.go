// Package httpapi is the thin HTTP glue the spec calls for (spec §6):
// it parses the raw query string, dispatches to the Dispatcher, and
// serializes the result. No business logic lives here.
//
// Response shapes are ported directly from the original's
// _examples/original_source/src/api/mod.rs: SuccessResponse{query,data},
// ErrorResponse{query,error}, and a ResponseData union of Records/Values.
// Router assembly (middleware order, handler-per-resource shape) is
// grounded on edirooss-zmux-server's gin wiring
// (internal/api/http/handlers, internal/http/middleware/request_id.go).
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dreamware/labeldex/internal/dispatcher"
	"github.com/dreamware/labeldex/internal/lexer"
	"github.com/dreamware/labeldex/internal/record"
)

const requestIDHeader = "X-Request-ID"

// rawQuery is the POST /search request body: a single raw query string
// in the engine's own wire syntax (spec §4.1/§4.5).
type rawQuery struct {
	Query string `json:"query" binding:"required"`
}

// errorResponse mirrors the original's ErrorResponse{query, error}.
type errorResponse struct {
	Query string `json:"query"`
	Error string `json:"error"`
}

// successResponse mirrors the original's SuccessResponse{query, data}.
type successResponse struct {
	Query string       `json:"query"`
	Data  responseData `json:"data"`
}

// responseData mirrors the original's ResponseData enum (Records|Values),
// flattened into a tagged {variant, data} struct since Go has no
// serde-style enum (spec §6).
type responseData struct {
	Variant string `json:"variant"`
	Data    any    `json:"data"`
}

// labelPairDTO is one (key, val) pair of a serialized record (spec §6:
// "each record serializes as a list of {key,val} pairs").
type labelPairDTO struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

func recordToPairs(rec *record.Record) []labelPairDTO {
	pairs := make([]labelPairDTO, len(rec.Pairs))
	for i, p := range rec.Pairs {
		pairs[i] = labelPairDTO{Key: p.Key.Text(), Val: p.Val.Text()}
	}
	return pairs
}

// Handler holds the dependencies the routes need: the dispatcher and a
// logger. It has no other state.
type Handler struct {
	disp *dispatcher.Dispatcher
	log  *zap.SugaredLogger
}

// NewHandler builds a Handler around an already-running Dispatcher.
func NewHandler(disp *dispatcher.Dispatcher, log *zap.SugaredLogger) *Handler {
	return &Handler{disp: disp, log: log}
}

// requestID is a gin middleware assigning every request a stable id,
// ported from edirooss-zmux-server's middleware.RequestID: honor an
// inbound X-Request-ID if present and sane, otherwise mint a uuid.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if l := len(id); l < 1 || l > 64 {
			id = uuid.New().String()
		}
		c.Header(requestIDHeader, id)
		c.Set(requestIDHeader, id)
		c.Next()
	}
}

// NewRouter assembles the full gin engine: middleware, API routes,
// metrics, and the static web/ directory (spec §6).
func NewRouter(h *Handler, staticDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(cors.Default())

	r.POST("/search", h.handleSearch)
	r.GET("/status", h.handleStatus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if staticDir != "" {
		// Served as the fallback handler: a "/*filepath" catch-all route
		// would conflict with /status and /metrics in gin's router.
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(staticDir))))
	}
	return r
}

// handleSearch parses the query string and routes it to either a
// selector search (-> records) or a label_values search (-> values),
// matching the original's handle_search dispatch on query::Query.
func (h *Handler) handleSearch(c *gin.Context) {
	var req rawQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("malformed search request body", "error", err)
		c.JSON(http.StatusBadRequest, errorResponse{Query: req.Query, Error: err.Error()})
		return
	}

	q, err := lexer.ParseQuery(req.Query)
	if err != nil {
		h.log.Warnw("query parse failed", "query", req.Query, "error", err)
		c.JSON(http.StatusBadRequest, errorResponse{Query: req.Query, Error: err.Error()})
		return
	}

	switch q.Kind {
	case record.QueryKeyValues:
		values := h.disp.KeyValuesSearch(q.KeyValues)
		c.JSON(http.StatusOK, successResponse{
			Query: req.Query,
			Data:  responseData{Variant: "Values", Data: values},
		})
	default:
		recs := h.disp.Search(q.Simple)
		data := make([][]labelPairDTO, len(recs))
		for i, rec := range recs {
			data[i] = recordToPairs(rec)
		}
		c.JSON(http.StatusOK, successResponse{
			Query: req.Query,
			Data:  responseData{Variant: "Records", Data: data},
		})
	}
}

// handleStatus reports the per-shard status (spec §6, GET /status).
func (h *Handler) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.disp.Status())
}
