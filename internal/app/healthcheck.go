package app

import (
	"net/http"
)

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "UP"

	if err := app.db.Ping(r.Context()); err != nil {
		status = "DEGRADED"
	}
	if err := app.redis.Ping(r.Context()).Err(); err != nil {
		status = "DEGRADED"
	}

	resp := HealthcheckResponse{
		Status: status,
		SystemInfo: SystemInfo{
			Version:     version,
			Environment: app.config.Env,
		},
	}

	app.writeJSON(w, http.StatusOK, resp, nil)
}
