package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaintenanceRunner enqueues an out-of-schedule audit prune.
type MaintenanceRunner interface {
	RunNow() (string, error)
}

type MaintenanceController struct {
	runner  MaintenanceRunner
	auditor Auditor
}

func NewMaintenanceController(runner MaintenanceRunner, auditor Auditor) *MaintenanceController {
	return &MaintenanceController{runner: runner, auditor: auditor}
}

// PruneAudit queues an audit retention run and answers with its task ID.
// POST /admin/maintenance/prune-audit
func (mc *MaintenanceController) PruneAudit(c *gin.Context) {
	taskID, err := mc.runner.RunNow()
	if err != nil {
		respondInternalError(c, err, "enqueue audit prune")
		return
	}
	if mc.auditor != nil {
		mc.auditor.LogModeration(requestInfo(c), "prune_audit", "task", 0, "queued audit prune "+taskID)
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
}
