package ingest

import "github.com/yunusmujadidi/purchase-order/models"

// InferStageAndStatus derives the production stage from the stage timestamps.
//
// The furthest stage with any evidence wins. PACKING is the exception: its In
// timestamp means PACKING, its Out timestamp means the order is COMPLETED.
func InferStageAndStatus(o *models.Order) (models.Stage, models.Status) {
	stage := models.StagePending
	for _, s := range []models.Stage{models.StageMetal, models.StageVeneer, models.StageAssy, models.StageFinishing} {
		if in, out := o.StageTimes(s); in != nil || out != nil {
			stage = s
		}
	}
	if o.PackingIn != nil {
		stage = models.StagePacking
	}
	if o.PackingOut != nil {
		stage = models.StageCompleted
	}

	switch stage {
	case models.StageCompleted:
		return stage, models.StatusCompleted
	case models.StagePending:
		return stage, models.StatusPending
	default:
		return stage, models.StatusInProgress
	}
}
