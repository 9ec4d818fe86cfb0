package gate

import (
	"fmt"

	"jobstream/internal/registration/models"
	dErrors "jobstream/pkg/domain-errors"
)

// Operation names a workflow mutation checked by the gate.
type Operation string

const (
	OpVerifyEmail     Operation = "verify_email"
	OpSubmitDetails   Operation = "submit_details"
	OpUploadDocument  Operation = "upload_document"
	OpSubmitFinancial Operation = "submit_financial"
	OpSubmitForReview Operation = "submit_for_review"
	OpAdminDecision   Operation = "admin_decision"
)

// prerequisite maps each operation to the step that must be completed before
// it may run. Gating reads the completed-step set, not the status rank, so a
// prerequisite stays satisfied even while the status sits further along.
var prerequisite = map[Operation]models.Step{
	OpSubmitDetails:   models.StepEmailVerified,
	OpUploadDocument:  models.StepDetailsSubmitted,
	OpSubmitFinancial: models.StepDocumentsUploaded,
	OpSubmitForReview: models.StepFinancialSubmitted,
}

// stepLabel renders the missing prerequisite in user-facing terms.
var stepLabel = map[models.Step]string{
	models.StepEmailVerified:      "email verification",
	models.StepDetailsSubmitted:   "company details",
	models.StepDocumentsUploaded:  "document upload",
	models.StepFinancialSubmitted: "financial verification",
}

// Permitted checks whether the operation is allowed given the registration's
// current progress. It is pure: no clock, no store, no mutation.
func Permitted(reg *models.Registration, op Operation) error {
	if op == OpAdminDecision {
		if reg.Status != models.StatusPendingReview {
			return outOfOrder(op, reg.Status, "submission for review")
		}
		return nil
	}

	// Once submitted for review the record is sealed for the applicant;
	// only the admin decision operation may touch it.
	if reg.Status.AtLeast(models.StatusPendingReview) {
		return dErrors.New(dErrors.CodeStepOutOfOrder,
			fmt.Sprintf("operation %s not allowed: registration is %s", op, reg.Status))
	}

	needed, ok := prerequisite[op]
	if !ok {
		// verify_email has no prerequisite beyond an open registration.
		return nil
	}
	if !reg.Steps.Completed(needed) {
		return outOfOrder(op, reg.Status, stepLabel[needed])
	}
	return nil
}

func outOfOrder(op Operation, current models.Status, needed string) error {
	return dErrors.New(dErrors.CodeStepOutOfOrder,
		fmt.Sprintf("operation %s requires %s first (current status %s)", op, needed, current))
}
