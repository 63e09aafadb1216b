package syncserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/redboxergaming-hash/trackerv8/internal/remote"
)

const maxListLimit = 5000

// Server exposes Storage as the HTTP API remote.Client speaks.
type Server struct {
	storage *Storage
	secret  string
	log     *zap.Logger
}

func New(storage *Storage, secret string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{storage: storage, secret: secret, log: log}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.accessLog())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, Success(gin.H{"status": "ok"}, nil)) })

	v1 := r.Group("/v1", authRequired(s.secret))
	v1.GET("/persons", s.listPersons)
	v1.PUT("/persons/:id", s.upsertPerson)
	v1.DELETE("/persons/:id", s.deletePerson)
	v1.GET("/entries", s.listEntries)
	v1.PUT("/entries/:id", s.upsertEntry)
	v1.DELETE("/entries/:id", s.deleteEntry)
	v1.PUT("/products/:barcode", s.upsertProduct)
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("sync server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown sync server: %w", err)
		}
		return nil
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) listPersons(c *gin.Context) {
	rows, err := s.storage.ListPersons(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		handleError(c, s.log, err, http.StatusInternalServerError, "failed to list persons")
		return
	}
	handleSuccess(c, s.log, rows, map[string]any{"count": len(rows)})
}

func (s *Server) upsertPerson(c *gin.Context) {
	var row remote.PersonRow
	if err := c.ShouldBindJSON(&row); err != nil {
		handleError(c, s.log, err, http.StatusBadRequest, "invalid person")
		return
	}
	if err := bindID(c.Param("id"), &row.ID); err != nil {
		handleError(c, s.log, err, http.StatusBadRequest, "invalid person")
		return
	}
	if strings.TrimSpace(row.Name) == "" || row.KcalGoal <= 0 {
		handleError(c, s.log, errors.New("name and a positive kcal_goal are required"), http.StatusBadRequest, "invalid person")
		return
	}
	row.UserID = c.GetString(ctxUserID)
	saved, err := s.storage.UpsertPerson(c.Request.Context(), row)
	if err != nil {
		handleError(c, s.log, err, http.StatusInternalServerError, "failed to save person")
		return
	}
	handleSuccess(c, s.log, saved, nil)
}

func (s *Server) deletePerson(c *gin.Context) {
	if err := s.storage.DeletePerson(c.Request.Context(), c.GetString(ctxUserID), c.Param("id")); err != nil {
		handleError(c, s.log, err, http.StatusInternalServerError, "failed to delete person")
		return
	}
	handleSuccess(c, s.log, gin.H{"id": c.Param("id")}, nil)
}

func (s *Server) listEntries(c *gin.Context) {
	f := remote.EntryFilter{
		PersonID:  c.Query("person_id"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxListLimit {
			handleError(c, s.log, fmt.Errorf("limit must be between 1 and %d", maxListLimit), http.StatusBadRequest, "invalid filter")
			return
		}
		f.Limit = limit
	}
	rows, err := s.storage.ListEntries(c.Request.Context(), c.GetString(ctxUserID), f)
	if err != nil {
		handleError(c, s.log, err, http.StatusInternalServerError, "failed to list entries")
		return
	}
	handleSuccess(c, s.log, rows, map[string]any{"count": len(rows)})
}

func (s *Server) upsertEntry(c *gin.Context) {
	var row remote.EntryRow
	if err := c.ShouldBindJSON(&row); err != nil {
		handleError(c, s.log, err, http.StatusBadRequest, "invalid entry")
		return
	}
	if err := bindID(c.Param("id"), &row.ID); err != nil {
		handleError(c, s.log, err, http.StatusBadRequest, "invalid entry")
		return
	}
	if row.PersonID == "" || row.Date == "" || len(row.Payload) == 0 {
		handleError(c, s.log, errors.New("person_id, date and payload_json are required"), http.StatusBadRequest, "invalid entry")
		return
	}
	row.UserID = c.GetString(ctxUserID)
	saved, err := s.storage.UpsertEntry(c.Request.Context(), row)
	if err != nil {
		handleError(c, s.log, err, http.StatusInternalServerError, "failed to save entry")
		return
	}
	handleSuccess(c, s.log, saved, nil)
}

func (s *Server) deleteEntry(c *gin.Context) {
	if err := s.storage.DeleteEntry(c.Request.Context(), c.GetString(ctxUserID), c.Param("id")); err != nil {
		handleError(c, s.log, err, http.StatusInternalServerError, "failed to delete entry")
		return
	}
	handleSuccess(c, s.log, gin.H{"id": c.Param("id")}, nil)
}

func (s *Server) upsertProduct(c *gin.Context) {
	var row remote.ProductPointerRow
	if err := c.ShouldBindJSON(&row); err != nil {
		handleError(c, s.log, err, http.StatusBadRequest, "invalid product")
		return
	}
	if err := bindID(c.Param("barcode"), &row.Barcode); err != nil {
		handleError(c, s.log, err, http.StatusBadRequest, "invalid product")
		return
	}
	row.UserID = c.GetString(ctxUserID)
	saved, err := s.storage.UpsertProductPointer(c.Request.Context(), row)
	if err != nil {
		handleError(c, s.log, err, http.StatusInternalServerError, "failed to save product")
		return
	}
	handleSuccess(c, s.log, saved, nil)
}

// bindID fills an empty body id from the path and rejects a mismatch.
func bindID(pathID string, bodyID *string) error {
	if *bodyID == "" {
		*bodyID = pathID
	}
	if *bodyID != pathID {
		return fmt.Errorf("body id %q does not match path id %q", *bodyID, pathID)
	}
	return nil
}
