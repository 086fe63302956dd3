// Package api exposes the tracker and roster over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gatelog/internal/apperr"
	"gatelog/internal/auth"
	"gatelog/internal/badge"
	"gatelog/internal/filter"
	"gatelog/internal/model"
	"gatelog/internal/roster"
	"gatelog/internal/tracker"
)

// Check is a named health probe.
type Check func(ctx context.Context) bool

// Handler serves the HTTP API.
type Handler struct {
	tracker  *tracker.Service
	roster   *roster.Service
	stations *auth.Stations
	conn     Connectivity
	checks   map[string]Check
}

// NewHandler wires the services. conn may be nil (always online).
func NewHandler(t *tracker.Service, r *roster.Service, st *auth.Stations, conn Connectivity, checks map[string]Check) *Handler {
	if conn == nil {
		conn = alwaysOnline{}
	}
	return &Handler{tracker: t, roster: r, stations: st, conn: conn, checks: checks}
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	ae := apperr.As(err, fallback)
	status := apperr.HTTPStatus(ae)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	n := errorNotice(ae.Message)
	if ae.Code == apperr.CodeConfirmationRequired {
		n = Notice{Title: "Confirm", Description: ae.Message}
	}
	c.JSON(status, gin.H{"error": ae, "notice": n})
}

func (h *Handler) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok", "online": h.conn.Online(c.Request.Context())}
	for name, check := range h.checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ----- stations -----

func (h *Handler) registerStation(c *gin.Context) {
	var req struct {
		StationID       string `json:"station_id" binding:"required"`
		RegistrationKey string `json:"registration_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.MissingField("station_id", "Please enter a station id"), "")
		return
	}
	tokens, err := h.stations.Register(c.Request.Context(), req.StationID, req.RegistrationKey)
	if errors.Is(err, auth.ErrRegistrationKey) {
		h.fail(c, apperr.Unauthenticated("Invalid registration key"), "")
		return
	}
	if err != nil {
		h.fail(c, err, "Station registration failed")
		return
	}
	c.JSON(http.StatusCreated, tokenBody(tokens))
}

func (h *Handler) refreshStation(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.MissingField("refresh_token", "Refresh token required"), "")
		return
	}
	tokens, err := h.stations.Refresh(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, auth.ErrInvalidToken) {
		h.fail(c, apperr.Unauthenticated("Invalid refresh token"), "")
		return
	}
	if err != nil {
		h.fail(c, err, "Token refresh failed")
		return
	}
	c.JSON(http.StatusOK, tokenBody(tokens))
}

func tokenBody(t auth.TokenPair) gin.H {
	return gin.H{
		"access_token":  t.AccessToken,
		"refresh_token": t.RefreshToken,
		"expires_at":    t.AccessExp.Unix(),
	}
}

// ----- activity -----

func (h *Handler) options(c *gin.Context) {
	c.JSON(http.StatusOK, model.DefaultCatalog())
}

func (h *Handler) recordScan(c *gin.Context) {
	var req struct {
		Type    model.EntryType `json:"type"`
		Payload string          `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Invalid("Invalid request body"), "")
		return
	}
	p, err := badge.ParsePayload(req.Payload)
	if err != nil || strings.TrimSpace(p.Name) == "" {
		h.fail(c, apperr.MissingField("payload", "Invalid QR code"), "")
		return
	}
	e, err := h.tracker.RecordScan(c.Request.Context(), req.Type, p)
	if err != nil {
		h.fail(c, err, "Failed to record entry/exit")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": e, "notice": recordedNotice(e, "")})
}

func (h *Handler) recordManual(c *gin.Context) {
	var req struct {
		Type model.EntryType `json:"type"`
		tracker.ManualInput
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Invalid("Invalid request body"), "")
		return
	}
	e, err := h.tracker.RecordManual(c.Request.Context(), req.Type, req.ManualInput)
	if err != nil {
		h.fail(c, err, "Failed to record entry/exit")
		return
	}
	n := recordedNotice(e, " manually"+h.offline(c.Request.Context()))
	c.JSON(http.StatusCreated, gin.H{"entry": e, "notice": n})
}

func (h *Handler) quickExit(c *gin.Context) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(c, apperr.Invalid("Invalid request body"), "")
		return
	}
	e, err := h.tracker.QuickExit(c.Request.Context(), c.Param("id"), req.Confirm)
	if err != nil {
		h.fail(c, err, "Failed to record exit")
		return
	}
	n := Notice{Title: "Exit Recorded", Description: e.PersonName + " has been marked as exited" + h.offline(c.Request.Context())}
	c.JSON(http.StatusCreated, gin.H{"entry": e, "notice": n})
}

func (h *Handler) listEntries(c *gin.Context) {
	var q filter.EntryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperr.Invalid("Invalid filter"), "")
		return
	}
	act, err := h.tracker.Activity(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err, "Failed to load activity")
		return
	}
	c.JSON(http.StatusOK, act)
}

func (h *Handler) entryFilters(c *gin.Context) {
	opts, err := h.tracker.FilterOptions(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to load filters")
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.tracker.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to load statistics")
		return
	}
	c.JSON(http.StatusOK, st)
}

// ----- roster -----

type personView struct {
	model.Person
	QRVisible bool `json:"qr_visible"`
}

func (h *Handler) view(p model.Person) personView {
	v := personView{Person: p, QRVisible: h.roster.QRVisible(p.ID)}
	if !v.QRVisible {
		v.QRCodeData = ""
	}
	return v
}

func (h *Handler) addPerson(c *gin.Context) {
	var in roster.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, apperr.Invalid("Invalid request body"), "")
		return
	}
	p, err := h.roster.AddPerson(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "Failed to add person")
		return
	}
	n := Notice{
		Title:       "Person Added",
		Description: p.Name + " has been registered successfully with QR code generated" + h.offline(c.Request.Context()),
	}
	// full credential regardless of the visibility toggle
	c.Header("Location", "/v1/people/"+p.ID)
	c.JSON(http.StatusCreated, gin.H{"person": personView{Person: p, QRVisible: h.roster.QRVisible(p.ID)}, "notice": n})
}

func (h *Handler) listPeople(c *gin.Context) {
	var q filter.Criteria
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperr.Invalid("Invalid filter"), "")
		return
	}
	people, err := h.roster.List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err, "Failed to load people from offline storage")
		return
	}
	out := make([]personView, 0, len(people))
	for _, p := range people {
		out = append(out, h.view(p))
	}
	c.JSON(http.StatusOK, gin.H{"people": out, "count": len(out)})
}

func (h *Handler) personFilters(c *gin.Context) {
	opts, err := h.roster.FilterOptions(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to load filters")
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (h *Handler) getPerson(c *gin.Context) {
	p, err := h.roster.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to load person")
		return
	}
	c.JSON(http.StatusOK, h.view(p))
}

func (h *Handler) deletePerson(c *gin.Context) {
	p, err := h.roster.DeletePerson(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to delete person")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     p.ID,
		"notice": Notice{Title: "Person Removed", Description: p.Name + " has been removed from local storage"},
	})
}

func (h *Handler) toggleQR(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.roster.Get(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Failed to load person")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "qr_visible": h.roster.ToggleQR(id)})
}

func (h *Handler) downloadQR(c *gin.Context) {
	data, name, err := h.roster.DownloadQR(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to load QR code")
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	c.Header("Cache-Control", "private, max-age="+strconv.Itoa(int(time.Hour.Seconds())))
	c.Data(http.StatusOK, "image/png", data)
}
