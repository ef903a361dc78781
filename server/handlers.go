package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/s0up4200/seerrbridge/dispatch"
	"github.com/s0up4200/seerrbridge/scheduler"
	"github.com/s0up4200/seerrbridge/sensor"
)

// SensorResponse is the JSON view of one sensor
type SensorResponse struct {
	Label      sensor.Label   `json:"label"`
	Name       string         `json:"name"`
	EntityID   string         `json:"entity_id"`
	UniqueID   string         `json:"unique_id"`
	Icon       string         `json:"icon"`
	State      *int           `json:"state"`
	Attributes map[string]any `json:"attributes"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`
}

// ServiceResponse reports the outcome of a service call
type ServiceResponse struct {
	Action  string           `json:"action"`
	Outcome dispatch.Outcome `json:"outcome"`
}

func newSensorResponse(s *sensor.Sensor) SensorResponse {
	r := s.Reading()
	resp := SensorResponse{
		Label:      s.Label(),
		Name:       s.Name(),
		EntityID:   s.EntityID(),
		UniqueID:   s.UniqueID(),
		Icon:       s.Icon(),
		State:      r.State,
		Attributes: r.Attributes,
	}
	if !r.UpdatedAt.IsZero() {
		resp.UpdatedAt = &r.UpdatedAt
	}
	return resp
}

// healthCheck handles GET /healthz
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.opts.Version,
	})
}

// listSensors handles GET /api/sensors
func (s *Server) listSensors(c echo.Context) error {
	sensors := s.opts.Sensors.Sensors()
	resp := make([]SensorResponse, 0, len(sensors))
	for _, sn := range sensors {
		resp = append(resp, newSensorResponse(sn))
	}
	return c.JSON(http.StatusOK, resp)
}

// getSensor handles GET /api/sensors/:label
func (s *Server) getSensor(c echo.Context) error {
	sn, ok := s.opts.Sensors.Get(sensor.Label(c.Param("label")))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "sensor not found")
	}
	return c.JSON(http.StatusOK, newSensorResponse(sn))
}

// callService handles POST /api/services/:action. Failures never surface as
// HTTP errors; the outcome field carries them.
func (s *Server) callService(c echo.Context) error {
	name := c.Param("action")

	action, err := dispatch.ParseAction(name)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Unknown service called")
		return c.JSON(http.StatusOK, ServiceResponse{Action: name, Outcome: dispatch.OutcomeRejected})
	}

	var call dispatch.Call
	if err := c.Bind(&call); err != nil {
		s.logger.Warn().Err(err).Str("action", name).Msg("Invalid service payload")
		return c.JSON(http.StatusOK, ServiceResponse{Action: name, Outcome: dispatch.OutcomeRejected})
	}
	call.Action = action

	outcome := s.opts.Dispatcher.Dispatch(c.Request().Context(), call)
	return c.JSON(http.StatusOK, ServiceResponse{Action: name, Outcome: outcome})
}

// refreshSensors handles POST /api/sensors/refresh
func (s *Server) refreshSensors(c echo.Context) error {
	return s.triggerTask(c, s.opts.PollTaskID)
}

// listTasks handles GET /api/tasks
func (s *Server) listTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.opts.Tasks.ListTasks())
}

// getTask handles GET /api/tasks/:id
func (s *Server) getTask(c echo.Context) error {
	info, err := s.opts.Tasks.GetTask(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	return c.JSON(http.StatusOK, info)
}

// runTask handles POST /api/tasks/:id/run
func (s *Server) runTask(c echo.Context) error {
	return s.triggerTask(c, c.Param("id"))
}

func (s *Server) triggerTask(c echo.Context, taskID string) error {
	err := s.opts.Tasks.RunNow(taskID)
	switch {
	case errors.Is(err, scheduler.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	case errors.Is(err, scheduler.ErrTaskRunning):
		return echo.NewHTTPError(http.StatusConflict, "task is already running")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	s.logger.Info().Str("task", taskID).Msg("Task triggered")
	return c.JSON(http.StatusAccepted, map[string]string{"task": taskID, "status": "started"})
}
