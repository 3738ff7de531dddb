package api

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sbahn.dev/delays"
	"sbahn.dev/delays/model"
	"sbahn.dev/delays/parse"
)

const (
	DefaultModelTTL = 5 * time.Minute
	DefaultRecent   = 5
)

// Serves predictions and statistics over HTTP.
//
// The model is trained on first use and retrained once it's older
// than ModelTTL, or after a record is added through the API.
type Handler struct {
	ModelTTL time.Duration
	Location *time.Location
	TimeNow  func() time.Time

	manager *delays.Manager

	mutex     sync.Mutex
	model     *delays.Model
	trainedAt time.Time
}

func NewHandler(manager *delays.Manager) *Handler {
	return &Handler{
		ModelTTL: DefaultModelTTL,
		Location: time.UTC,
		TimeNow:  time.Now,
		manager:  manager,
	}
}

func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/predict", h.Predict)
	api.GET("/stats", h.Stats)
	api.GET("/model", h.Model)
	api.POST("/records", h.AddRecord)

	return router
}

func (h *Handler) currentModel() (*delays.Model, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	now := h.TimeNow()
	if h.model != nil && now.Sub(h.trainedAt) < h.ModelTTL {
		return h.model, nil
	}

	m, err := h.manager.Train()
	if err != nil {
		return nil, err
	}
	h.model = m
	h.trainedAt = now

	return m, nil
}

func (h *Handler) invalidateModel() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.model = nil
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

type PredictionResponse struct {
	Line          string  `json:"line"`
	Time          string  `json:"time"`
	Direction     string  `json:"direction"`
	Delay         float64 `json:"delay_minutes"`
	Samples       int     `json:"samples"`
	Buckets       int     `json:"buckets"`
	Source        string  `json:"source"`
	WindowMinutes int     `json:"window_minutes,omitempty"`
}

// GET /api/predict?line=S4&time=09:30
func (h *Handler) Predict(c *gin.Context) {
	line := c.Query("line")
	if line == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "line is required"})
		return
	}

	t, err := model.ParseTimeOfDay(c.Query("time"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.currentModel()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "training failed"})
		return
	}

	pred, err := h.manager.Predict(m, line, t)
	if errors.Is(err, delays.ErrPredictionUnavailable) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, PredictionResponse{
		Line:          pred.Line,
		Time:          pred.Time.String(),
		Direction:     pred.Direction.String(),
		Delay:         pred.Delay,
		Samples:       pred.Samples,
		Buckets:       pred.Buckets,
		Source:        pred.Source.String(),
		WindowMinutes: int(pred.Window / time.Minute),
	})
}

type SummaryResponse struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	OnTime int     `json:"on_time"`
	Late   int     `json:"late"`
}

type LineSummaryResponse struct {
	Line string `json:"line"`
	SummaryResponse
}

type WeekdayResponse struct {
	Weekday string  `json:"weekday"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
}

type RecordResponse struct {
	ID            int64     `json:"id"`
	Line          string    `json:"line"`
	Station       string    `json:"station,omitempty"`
	ScheduledTime string    `json:"scheduled_time"`
	Delay         int       `json:"delay_minutes"`
	Direction     string    `json:"direction"`
	Source        string    `json:"source"`
	CapturedAt    time.Time `json:"captured_at"`
}

type StatsResponse struct {
	Overall  SummaryResponse       `json:"overall"`
	Lines    []LineSummaryResponse `json:"lines"`
	Weekdays []WeekdayResponse     `json:"weekdays"`
	Recent   []RecordResponse      `json:"recent"`
}

func summaryResponse(s delays.Summary) SummaryResponse {
	return SummaryResponse{
		Count:  s.Count,
		Mean:   s.Mean,
		StdDev: s.StdDev,
		Min:    s.Min,
		Max:    s.Max,
		OnTime: s.OnTime,
		Late:   s.Late,
	}
}

func recordResponse(r *model.DelayRecord) RecordResponse {
	return RecordResponse{
		ID:            r.ID,
		Line:          r.Line,
		Station:       r.Station,
		ScheduledTime: r.ScheduledTime.String(),
		Delay:         r.Delay,
		Direction:     r.Direction.String(),
		Source:        string(r.Source),
		CapturedAt:    r.CapturedAt.UTC(),
	}
}

// GET /api/stats?recent=5
func (h *Handler) Stats(c *gin.Context) {
	recent, err := strconv.Atoi(c.DefaultQuery("recent", strconv.Itoa(DefaultRecent)))
	if err != nil || recent < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recent parameter, must be a non-negative integer"})
		return
	}

	stats, err := h.manager.Stats(recent, h.Location)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reading records failed"})
		return
	}

	resp := StatsResponse{
		Overall:  summaryResponse(stats.Overall),
		Lines:    []LineSummaryResponse{},
		Weekdays: []WeekdayResponse{},
		Recent:   []RecordResponse{},
	}
	for _, l := range stats.Lines {
		resp.Lines = append(resp.Lines, LineSummaryResponse{Line: l.Line, SummaryResponse: summaryResponse(l.Summary)})
	}
	for _, w := range stats.Weekdays {
		resp.Weekdays = append(resp.Weekdays, WeekdayResponse{Weekday: w.Weekday.String(), Count: w.Count, Mean: w.Mean})
	}
	for i := range stats.Recent {
		resp.Recent = append(resp.Recent, recordResponse(&stats.Recent[i]))
	}

	c.JSON(http.StatusOK, resp)
}

type ModelEntryResponse struct {
	Line      string  `json:"line"`
	Slot      string  `json:"slot"`
	Direction string  `json:"direction"`
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stddev"`
}

// GET /api/model?line=S4
func (h *Handler) Model(c *gin.Context) {
	m, err := h.currentModel()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "training failed"})
		return
	}

	entries := m.Entries()
	if line := c.Query("line"); line != "" {
		entries = m.LineEntries(line)
	}

	resp := []ModelEntryResponse{}
	for _, e := range entries {
		resp = append(resp, ModelEntryResponse{
			Line:      e.Bucket.Line,
			Slot:      e.Bucket.Time().String(),
			Direction: e.Bucket.Direction.String(),
			Count:     e.Count,
			Mean:      e.Mean,
			StdDev:    e.StdDev,
		})
	}

	c.JSON(http.StatusOK, resp)
}

type AddRecordRequest struct {
	Text string `json:"text" binding:"required"`
}

// POST /api/records {"text": "S4 +5 09:30"}
func (h *Handler) AddRecord(c *gin.Context) {
	var req AddRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	record, err := h.manager.AddEntry(req.Text)
	if err != nil {
		var pe *parse.ParseError
		if errors.As(err, &pe) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storing record failed"})
		return
	}

	h.invalidateModel()

	c.JSON(http.StatusCreated, recordResponse(record))
}
