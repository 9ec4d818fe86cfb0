package models

import "time"

// StartResponse is returned by the start-registration operation.
type StartResponse struct {
	RegistrationID string
	ExpiresAt      time.Time
}

// StepView is one entry in the human-facing progress list.
type StepView struct {
	Step      Step
	Label     string
	Completed bool
}

// StatusResponse is the read-only projection of a registration's progress.
// It is derived from the stored status and step set on every call and holds
// no state of its own.
type StatusResponse struct {
	RegistrationID string
	Status         Status
	CurrentStep    string
	Steps          []StepView
	QueuePosition  int
	CreatedAt      time.Time
	ExpiresAt      time.Time
	SubmittedAt    *time.Time
	ReviewedAt     *time.Time
	ReviewNotes    string
}

var stepLabels = map[Step]string{
	StepEmailVerified:      "Verify company email",
	StepDetailsSubmitted:   "Submit company details",
	StepDocumentsUploaded:  "Upload documents",
	StepFinancialSubmitted: "Financial verification",
	StepSubmittedForReview: "Submit for review",
}

var currentStepByStatus = map[Status]string{
	StatusInitiated:          "Verify company email",
	StatusEmailVerified:      "Submit company details",
	StatusDetailsSubmitted:   "Upload documents",
	StatusDocumentsUploaded:  "Financial verification",
	StatusFinancialSubmitted: "Submit for review",
	StatusPendingReview:      "Awaiting review",
	StatusApproved:           "Approved",
	StatusRejected:           "Rejected",
}

// Project computes the status projection for a registration. Recomputed every
// call so it can never drift from the authoritative status.
func Project(reg *Registration) StatusResponse {
	steps := make([]StepView, 0, len(stepOrder))
	for _, step := range stepOrder {
		steps = append(steps, StepView{
			Step:      step,
			Label:     stepLabels[step],
			Completed: reg.Steps.Completed(step),
		})
	}

	return StatusResponse{
		RegistrationID: reg.ID,
		Status:         reg.Status,
		CurrentStep:    currentStepByStatus[reg.Status],
		Steps:          steps,
		QueuePosition:  reg.QueuePosition,
		CreatedAt:      reg.CreatedAt,
		ExpiresAt:      reg.ExpiresAt,
		SubmittedAt:    reg.SubmittedAt,
		ReviewedAt:     reg.ReviewedAt,
		ReviewNotes:    reg.ReviewNotes,
	}
}
