package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/san-kum/ctrlsweep/internal/scenario"
)

// Handler serves the REST API with permissive CORS, wrapping every reply
// in the {status, message, payload} envelope.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(s.requestLogger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status":  http.StatusInternalServerError,
			"message": "internal error",
			"payload": nil,
		})
	}))

	router.GET("/version", func(c *gin.Context) {
		reply(c, "Queried the version number successfully.", gin.H{"version": Version})
	})
	router.GET("/name", func(c *gin.Context) {
		reply(c, "Queried the name of the test case successfully.", gin.H{"name": s.Name()})
	})
	router.PUT("/initialize", s.handleInitialize)
	router.GET("/step", func(c *gin.Context) {
		reply(c, "Queried the control step successfully.", gin.H{"step": s.Step()})
	})
	router.PUT("/step", s.handleSetStep)
	router.PUT("/scenario", s.handleScenario)
	router.POST("/advance", s.handleAdvance)
	router.GET("/kpi", func(c *gin.Context) {
		reply(c, "Queried KPIs successfully.", s.KPI())
	})
	router.GET("/measurements", func(c *gin.Context) {
		reply(c, "Queried the measurements successfully.", s.Measurements())
	})
	router.GET("/inputs", func(c *gin.Context) {
		reply(c, "Queried the inputs successfully.", s.Inputs())
	})
	router.GET("/forecast_points", func(c *gin.Context) {
		reply(c, "Queried the forecast points successfully.", s.ForecastPoints())
	})
	router.PUT("/results", s.handleResults)
	router.PUT("/forecast", s.handleForecast)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
}

func reply(c *gin.Context, message string, payload any) {
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "message": message, "payload": payload})
}

func fail(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{"status": code, "message": err.Error(), "payload": nil})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()
		s.logger.Printf("server: %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(began))
	}
}

func (s *Server) handleInitialize(c *gin.Context) {
	var req struct {
		StartTime    *float64 `json:"start_time"`
		WarmupPeriod *float64 `json:"warmup_period"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if req.StartTime == nil || req.WarmupPeriod == nil {
		fail(c, http.StatusBadRequest, errMissing("start_time and warmup_period"))
		return
	}

	y, err := s.Initialize(c.Request.Context(), *req.StartTime, *req.WarmupPeriod)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	reply(c, "Test case initialized successfully.", y)
}

func (s *Server) handleSetStep(c *gin.Context) {
	var req struct {
		Step *float64 `json:"step"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if req.Step == nil {
		fail(c, http.StatusBadRequest, errMissing("step"))
		return
	}
	if err := s.SetStep(*req.Step); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	reply(c, "Control step set successfully.", gin.H{"step": *req.Step})
}

func (s *Server) handleScenario(c *gin.Context) {
	var p scenario.Params
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	res, err := s.SetScenario(c.Request.Context(), p)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	reply(c, "Scenario set successfully.", res)
}

func (s *Server) handleAdvance(c *gin.Context) {
	u := map[string]float64{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&u); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
	}

	y, err := s.Advance(c.Request.Context(), u)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	reply(c, "Advanced simulation successfully.", y)
}

func (s *Server) handleResults(c *gin.Context) {
	var req struct {
		PointNames []string `json:"point_names"`
		StartTime  float64  `json:"start_time"`
		FinalTime  float64  `json:"final_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	out, err := s.Results(req.PointNames, req.StartTime, req.FinalTime)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	reply(c, "Queried results data successfully.", out)
}

func (s *Server) handleForecast(c *gin.Context) {
	var req struct {
		PointNames []string `json:"point_names"`
		Horizon    float64  `json:"horizon"`
		Interval   float64  `json:"interval"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	out, err := s.Forecast(req.PointNames, req.Horizon, req.Interval)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	reply(c, "Queried the forecast successfully.", out)
}
